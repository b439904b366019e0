// hw_context.go - hardware-backed GL context
//
// Grounded on umd/src/gl/hw.rs: begin_frame/end_frame ordering (wait-
// clear-idle then advance depth index then clear-next-depth; clear-next-
// frame-buffer before the wait_idle barrier so it overlaps scan-out) and
// the quadrant texture upload logic.

package gl

import (
	"fmt"

	"github.com/natanbc/fpga-gpu/hal"
)

const (
	frameBufCount      = 3
	depthBufCount      = 2
	bytesPerPixelFrame = 3
	bytesPerPixelDepth = 2
)

func ceilToPage(bytes int) int {
	const page = 4096
	return (bytes + page - 1) / page * page
}

// clearBaseWords derives the clear_buffer command's 128-byte-aligned base
// address field from a buffer's physical base address.
func clearBaseWords(phys uint64) uint32 {
	if phys&0x7F != 0 {
		panic("gl: clear_buffer target is not 128-byte aligned")
	}
	return uint32(phys >> 7)
}

// HWContext composes the display-controller and rasterizer HAL, the
// command stream, the triple frame buffers, double depth buffers and the
// four-slot texture residency table, per spec.md §4.3.
type HWContext struct {
	common

	dc   *hal.DisplayController
	rast *hal.Rasterizer
	dma  *hal.Userdma
	cmd  *CommandBuffer

	frameBufs [frameBufCount]*hal.DmaBuf
	depthBufs [depthBufCount]*hal.DmaBuf
	frameIdx  int
	depthIdx  int

	residency residencyTable
}

// NewHWContext discovers the display_controller and rasterizer UIO
// devices, allocates the frame/depth/command DMA buffers, and returns a
// ready-to-use hardware context. Returns hal.ErrDeviceNotFound (wrapped)
// if either device is absent, so callers can fall back to NewSWContext.
func NewHWContext() (*HWContext, error) {
	dcUio, err := hal.OpenNamed("display_controller")
	if err != nil {
		return nil, err
	}
	rastUio, err := hal.OpenNamed("rasterizer")
	if err != nil {
		return nil, err
	}

	dc, err := hal.NewDisplayController(dcUio)
	if err != nil {
		return nil, err
	}
	rast, err := hal.NewRasterizer(rastUio)
	if err != nil {
		return nil, err
	}

	dma, err := hal.OpenUserdma()
	if err != nil {
		return nil, err
	}

	width, height := dc.Width(), dc.Height()
	frameSize := ceilToPage(width * height * bytesPerPixelFrame)
	depthSize := ceilToPage(width * height * bytesPerPixelDepth)

	c := &HWContext{common: newCommon(width, height), dc: dc, rast: rast, dma: dma}

	for i := range c.frameBufs {
		b, err := dma.AllocBuf(frameSize)
		if err != nil {
			return nil, fmt.Errorf("gl: alloc frame buffer %d: %w", i, err)
		}
		c.frameBufs[i] = b
	}
	for i := range c.depthBufs {
		b, err := dma.AllocBuf(depthSize)
		if err != nil {
			return nil, fmt.Errorf("gl: alloc depth buffer %d: %w", i, err)
		}
		c.depthBufs[i] = b
	}

	cmdBuf0, err := dma.AllocBuf(bufferSizeWords * 4)
	if err != nil {
		return nil, fmt.Errorf("gl: alloc command buffer 0: %w", err)
	}
	cmdBuf1, err := dma.AllocBuf(bufferSizeWords * 4)
	if err != nil {
		return nil, fmt.Errorf("gl: alloc command buffer 1: %w", err)
	}
	cmd, err := NewCommandBuffer(rast, cmdBuf0, cmdBuf1)
	if err != nil {
		return nil, err
	}
	c.cmd = cmd

	return c, nil
}

// BeginFrame implements spec.md §4.3 step 1 exactly: program FB/Z base
// registers to the current indices, await the previous frame's depth
// clear, advance the depth index, and kick the next depth clear.
func (c *HWContext) BeginFrame() {
	c.rast.SetBuffers(c.frameBufs[c.frameIdx].Phys(), c.depthBufs[c.depthIdx].Phys())

	c.cmd.WaitClearIdle()

	c.depthIdx = (c.depthIdx + 1) % depthBufCount
	depthBuf := c.depthBufs[c.depthIdx]
	depthWords := depthBuf.Size() / 4
	c.cmd.ClearBuffer(clearBaseWords(depthBuf.Phys()), uint32(depthWords/8), 0)
}

// EndFrame implements spec.md §4.3 step 3: clear the next frame buffer
// (white) before the drain barrier so the clear overlaps scan-out, drain
// the draw pipeline, then (if draw) swap scan-out and await the end-of-
// frame interrupt before advancing the frame index.
func (c *HWContext) EndFrame(draw bool) {
	next := (c.frameIdx + 1) % frameBufCount
	frameBuf := c.frameBufs[next]
	frameWords := frameBuf.Size() / 4
	c.cmd.ClearBuffer(clearBaseWords(frameBuf.Phys()), uint32(frameWords/8), 0xFFFFFF)

	c.cmd.WaitIdle()

	if draw {
		cursor := c.dc.NewCursor()
		c.dc.DrawFrame(c.frameBufs[c.frameIdx].Phys())
		c.dc.WaitEndOfFrame(cursor)
	}

	c.frameIdx = next
}

func (c *HWContext) DrawGouraud(vbo []GouraudVertex, ibo []uint16) {
	c.pipe.ForEachGouraud(vbo, ibo, func(tri [3]ScreenVertex) {
		c.cmd.DrawTriangle(0, false, tri)
	})
}

func (c *HWContext) DrawTexture(tex *TextureBuffer, vbo []TextureVertex, ibo []uint16) {
	slot := c.ensureTextureResident(tex)
	c.pipe.ForEachTexture(vbo, ibo, func(tri [3]ScreenVertex) {
		c.cmd.DrawTriangle(slot, true, tri)
	})
}

// ensureTextureResident implements spec.md §4.3's texture upload policy:
// assign a round-robin slot and upload all four quadrants on first use,
// or re-upload in place if the texture was mutated since last upload.
func (c *HWContext) ensureTextureResident(tex *TextureBuffer) int {
	slot := c.residency.slotFor(tex.id)
	if slot < 0 {
		slot = c.residency.assign(tex.id)
		c.uploadQuadrants(tex, slot)
	} else if tex.dirty {
		c.uploadQuadrants(tex, slot)
	}
	tex.dirty = false
	return slot
}

func (c *HWContext) uploadQuadrants(tex *TextureBuffer, slot int) {
	for q, r := range quadrantRanges {
		c.cmd.LoadTexture(slot, r[0], r[1], r[2], r[3], tex.quadrantPayload(q))
	}
}

// Close tears down HAL handles in dependency order (command stream has
// no Close of its own; the DMA buffers and devices it references are
// closed here).
func (c *HWContext) Close() error {
	for _, b := range c.frameBufs {
		_ = b.Close()
	}
	for _, b := range c.depthBufs {
		_ = b.Close()
	}
	for _, b := range c.cmd.bufs {
		if d, ok := b.(*hal.DmaBuf); ok {
			_ = d.Close()
		}
	}
	if err := c.rast.Close(); err != nil {
		return err
	}
	return c.dc.Close()
}
