// command.go - packed bitfield command stream engine
//
// Grounded on umd/src/gl/command.rs's CommandBuffer/Pack32/Pack64 and
// Buffer flush/maybe_flip_buffers logic. Suspension points (flush,
// WaitIdle, WaitClearIdle) block the single caller goroutine on the
// hal.Rasterizer's watch-channel cursors rather than yielding a
// cooperative task, per SPEC_FULL.md §4.2.

package gl

import "github.com/natanbc/fpga-gpu/hal"

const (
	bufferCount     = 2
	bufferSizeWords = 8192
)

const (
	opDrawTriangle  = 0x01
	opLoadTexture   = 0x02
	opWaitIdle      = 0x03
	opClearBuffer   = 0x04
	opWaitClearIdle = 0x05
)

// dmaBuf is the minimal surface CommandBuffer needs from a hal.DmaBuf.
type dmaBuf interface {
	Phys() uint64
	Map() (*hal.MemoryMap, error)
	SyncStart()
	SyncEnd()
}

// rasterizerHandle is the minimal surface CommandBuffer needs from
// hal.Rasterizer; shared by both the command stream and the HW context
// per spec.md §5 "shared mutable HAL".
type rasterizerHandle interface {
	SubmitCommands(phys uint64, words int)
	WaitCmd()
	WaitCmdDMA()
}

// CommandBuffer owns the two DMA-resident command buffers and packs
// draw/texture-load/barrier/clear operations into them, flushing to the
// rasterizer when a buffer fills or on an explicit Flush.
type CommandBuffer struct {
	rast rasterizerHandle

	bufs       [bufferCount]dmaBuf
	maps       [bufferCount]*hal.MemoryMap
	currentBuf int
	currentPos int
	submitted  bool
}

// NewCommandBuffer wraps two already-allocated DMA buffers, each at least
// BUFFER_SIZE_WORDS*4 bytes, and the rasterizer they submit to.
func NewCommandBuffer(rast rasterizerHandle, buf0, buf1 dmaBuf) (*CommandBuffer, error) {
	cb := &CommandBuffer{rast: rast, bufs: [bufferCount]dmaBuf{buf0, buf1}}
	for i, b := range cb.bufs {
		m, err := b.Map()
		if err != nil {
			return nil, err
		}
		cb.maps[i] = m
	}
	cb.bufs[0].SyncStart()
	return cb, nil
}

func (cb *CommandBuffer) currentMap() *hal.MemoryMap {
	return cb.maps[cb.currentBuf]
}

func (cb *CommandBuffer) writeWord(w uint32) {
	cb.currentMap().WriteU32(uintptr(cb.currentPos)*4, w)
	cb.currentPos++
}

// ensureSpace flushes the current buffer first if fewer than n words
// remain, so the caller's burst is never split across a buffer boundary.
func (cb *CommandBuffer) ensureSpace(n int) {
	if bufferSizeWords-cb.currentPos < n {
		cb.Flush()
	}
}

// DrawTriangle packs a draw_triangle command: opcode 0x01, texture-enable
// flag, 2-bit texture slot, then the 6 words (3 packed 64-bit vertices).
func (cb *CommandBuffer) DrawTriangle(texSlot int, textured bool, tri [3]ScreenVertex) {
	cb.ensureSpace(7)

	header := uint32(opDrawTriangle)
	if textured {
		header |= 1 << 6
	}
	header |= uint32(texSlot&0x3) << 7
	cb.writeWord(header)

	for _, v := range tri {
		lo, hi := v.PackWords()
		cb.writeWord(lo)
		cb.writeWord(hi)
	}
}

// LoadTexture packs a load_texture command: validates the tile
// constraints from spec.md §3, emits the header, then streams the RGB
// payload via writeRawSlice (which may itself span buffer flips).
func (cb *CommandBuffer) LoadTexture(slot int, startS, endS, startT, endT uint8, rgb []byte) {
	validateTile(startS, endS, startT, endT, rgb)

	sHigh := endS >> 6
	tHigh := (endT / 2) >> 5

	header := uint32(opLoadTexture)
	header |= uint32(slot&0x3) << 6
	header |= uint32(sHigh&0x1) << 8
	header |= uint32(startS&0x3F) << 9
	header |= uint32(endS&0x3F) << 15
	header |= uint32(tHigh&0x1) << 21
	header |= uint32(startT/2&0x1F) << 22
	header |= uint32(endT/2&0x1F) << 27

	cb.ensureSpace(1)
	cb.writeWord(header)
	cb.writeRawSlice(rgb)
}

// validateTile checks spec.md §3's load_texture tile invariants, including
// the payload length assert umd/src/gl/command.rs:108-109 performs before
// streaming the RGB data; these are ProtocolViolation-class programmer
// errors and abort.
func validateTile(startS, endS, startT, endT uint8, rgb []byte) {
	if !(startS <= endS && endS < 128) {
		panic("gl: load_texture: invalid s range")
	}
	if startT%2 != 0 {
		panic("gl: load_texture: start_t must be even")
	}
	if endT%2 != 1 {
		panic("gl: load_texture: end_t must be odd")
	}
	if !(startT/2 <= endT/2) {
		panic("gl: load_texture: start_t/2 must be <= end_t/2")
	}
	sHigh := endS >> 6
	if startS>>6 != sHigh {
		panic("gl: load_texture: s range crosses a 64-wide tile boundary")
	}
	tHigh := (endT / 2) >> 5
	if (startT/2)>>5 != tHigh {
		panic("gl: load_texture: t range crosses a 64-wide tile boundary")
	}

	expectedLen := int(endS-startS+1) * (int(endT/2-startT/2+1) * 2) * 3
	if len(rgb) != expectedLen {
		panic("gl: load_texture: payload length does not match tile dimensions")
	}
}

// writeRawSlice streams arbitrary payload bytes (packed 4 to a word,
// little-endian) across as many buffer flips as needed.
func (cb *CommandBuffer) writeRawSlice(data []byte) {
	for len(data) > 0 {
		cb.ensureSpace(1)
		var word uint32
		n := len(data)
		if n > 4 {
			n = 4
		}
		for i := 0; i < n; i++ {
			word |= uint32(data[i]) << (8 * i)
		}
		cb.writeWord(word)
		data = data[n:]
	}
}

// WaitIdle inserts the single-word wait_idle barrier and blocks until the
// rasterizer has drained its draw pipeline.
func (cb *CommandBuffer) WaitIdle() {
	cb.ensureSpace(1)
	cb.writeWord(opWaitIdle)
	cb.Flush()
	cb.rast.WaitCmd()
}

// WaitClearIdle inserts the wait_clear_idle barrier and blocks until the
// background clear engine has drained.
func (cb *CommandBuffer) WaitClearIdle() {
	cb.ensureSpace(1)
	cb.writeWord(opWaitClearIdle)
	cb.Flush()
	cb.rast.WaitCmd()
}

// ClearBuffer kicks the asynchronous background clear engine over
// wordsDiv8*8 32-bit words starting at baseWords, the 128-byte-aligned
// physical byte address shifted right by 7 (see clearBaseWords), with a
// 24-bit fill pattern.
func (cb *CommandBuffer) ClearBuffer(baseWords, wordsDiv8 uint32, pattern24 uint32) {
	cb.ensureSpace(3)
	header := uint32(opClearBuffer) | (pattern24&0xFFFFFF)<<8
	cb.writeWord(header)
	cb.writeWord(baseWords)
	cb.writeWord(wordsDiv8)
}

// Flush submits the current buffer's written words (if any) to the
// rasterizer and rotates to the other buffer. Per spec.md §4.2: sync-end
// the current buffer, await the previous submit's DMA completion, submit,
// flip, sync-start the new current buffer.
func (cb *CommandBuffer) Flush() {
	if cb.currentPos == 0 {
		return
	}

	buf := cb.bufs[cb.currentBuf]
	buf.SyncEnd()

	// The very first flush has no prior in-flight submit to wait on; the
	// hardware's cmd_dma_idle register already reads idle at reset.
	if cb.submitted {
		cb.rast.WaitCmdDMA()
	}
	cb.rast.SubmitCommands(buf.Phys(), cb.currentPos)
	cb.submitted = true

	cb.currentBuf = (cb.currentBuf + 1) % bufferCount
	cb.currentPos = 0
	cb.bufs[cb.currentBuf].SyncStart()
}
