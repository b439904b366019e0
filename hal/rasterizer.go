// rasterizer.go - rasterizer register interface, command DMA kickoff, perf counters
//
// Grounded on umd/src/hal/rasterizer.rs. Two independent interrupt bits
// (cmd-done, cmd-dma-done) fan out to two separate Watch channels so
// WaitCmd and WaitCmdDMA can be awaited independently.

package hal

import "sync"

const (
	rastRegIRQStatus    = 0 * 4
	rastRegIRQMask      = 1 * 4
	rastRegFBBase       = 2 * 4
	rastRegZBase        = 3 * 4
	rastRegIdle         = 4 * 4
	rastRegCmdAddr64    = 5 * 4
	rastRegCmdWords     = 6 * 4
	rastRegCmdCtrl      = 7 * 4
	rastRegCmdDMAIdle   = 8 * 4
	rastRegCmdIdle      = 9 * 4
	rastRegPerfCounters = 10 * 4
)

const (
	rastIRQCmdDone    = 0b01
	rastIRQCmdDMADone = 0b10
)

// Stalls breaks down the rasterizer's pipeline stall cycles by cause.
type Stalls struct {
	WalkerSearching uint32
	DepthLoadAddr   uint32
	DepthFIFO       uint32
	DepthLoadData   uint32
	DepthStoreAddr  uint32
	DepthStoreData  uint32
	PixelStore      uint32
}

// Diff returns the wrap-around-safe per-field delta since previous.
func (s Stalls) Diff(previous Stalls) Stalls {
	return Stalls{
		WalkerSearching: s.WalkerSearching - previous.WalkerSearching,
		DepthLoadAddr:   s.DepthLoadAddr - previous.DepthLoadAddr,
		DepthFIFO:       s.DepthFIFO - previous.DepthFIFO,
		DepthLoadData:   s.DepthLoadData - previous.DepthLoadData,
		DepthStoreAddr:  s.DepthStoreAddr - previous.DepthStoreAddr,
		DepthStoreData:  s.DepthStoreData - previous.DepthStoreData,
		PixelStore:      s.PixelStore - previous.PixelStore,
	}
}

// PerfCounters mirrors the rasterizer's wrap-around hardware counters:
// busy cycles, the seven stall causes and nine FIFO-depth histogram bins.
type PerfCounters struct {
	BusyCycles uint32
	Stalls     Stalls
	FIFODepth  [9]uint32
}

// Diff returns the wrap-around-safe per-field delta since previous.
func (p PerfCounters) Diff(previous PerfCounters) PerfCounters {
	var depths [9]uint32
	for i := range depths {
		depths[i] = p.FIFODepth[i] - previous.FIFODepth[i]
	}
	return PerfCounters{
		BusyCycles: p.BusyCycles - previous.BusyCycles,
		Stalls:     p.Stalls.Diff(previous.Stalls),
		FIFODepth:  depths,
	}
}

const perfCountersWords = 1 + 7 + 9 // BusyCycles + Stalls + FIFODepth

func readPerfCounters(m *MemoryMap, base uintptr) PerfCounters {
	var words [perfCountersWords]uint32
	for i := range words {
		words[i] = m.ReadU32(base + uintptr(i)*4)
	}
	return PerfCounters{
		BusyCycles: words[0],
		Stalls: Stalls{
			WalkerSearching: words[1],
			DepthLoadAddr:   words[2],
			DepthFIFO:       words[3],
			DepthLoadData:   words[4],
			DepthStoreAddr:  words[5],
			DepthStoreData:  words[6],
			PixelStore:      words[7],
		},
		FIFODepth: [9]uint32(words[8:17]),
	}
}

// Rasterizer drives the fixed-function triangle rasterizer: buffer base
// registers, command-stream DMA submission and completion interrupts.
type Rasterizer struct {
	mu   sync.Mutex
	held bool
	uio  *Uio
	regs *MemoryMap

	cmdDone       *Watch
	cmdDMADone    *Watch
	cmdDoneCur    *Cursor
	cmdDMADoneCur *Cursor

	stop chan struct{}
}

// NewRasterizer maps the rasterizer's register block, enables both
// completion interrupts and starts the background interrupt listener.
func NewRasterizer(uio *Uio) (*Rasterizer, error) {
	m, err := uio.Map(0)
	if err != nil {
		return nil, err
	}

	cmdDone := NewWatch()
	cmdDMADone := NewWatch()

	r := &Rasterizer{
		uio:        uio,
		regs:       m,
		cmdDone:    cmdDone,
		cmdDMADone: cmdDMADone,
		stop:       make(chan struct{}),
	}
	r.cmdDoneCur = cmdDone.Cursor()
	r.cmdDMADoneCur = cmdDMADone.Cursor()

	m.WriteU32(rastRegIRQMask, rastIRQCmdDone|rastIRQCmdDMADone)

	go r.irqLoop()

	return r, nil
}

func (r *Rasterizer) irqLoop() {
	for {
		if err := r.uio.EnableIRQ(); err != nil {
			return
		}
		if err := r.uio.WaitIRQ(); err != nil {
			return
		}
		select {
		case <-r.stop:
			return
		default:
		}
		status := r.regs.ReadU32(rastRegIRQStatus)
		r.regs.WriteU32(rastRegIRQStatus, status)
		if status&rastIRQCmdDone != 0 {
			r.cmdDone.Broadcast()
		}
		if status&rastIRQCmdDMADone != 0 {
			r.cmdDMADone.Broadcast()
		}
	}
}

func (r *Rasterizer) lock() {
	r.mu.Lock()
	if r.held {
		r.mu.Unlock()
		panic("hal: reentrant rasterizer access — the command stream and GL context must never call it concurrently")
	}
	r.held = true
	r.mu.Unlock()
}

func (r *Rasterizer) unlock() {
	r.mu.Lock()
	r.held = false
	r.mu.Unlock()
}

// PerfCounters reads the current hardware performance counters.
func (r *Rasterizer) PerfCounters() PerfCounters {
	r.lock()
	defer r.unlock()
	return readPerfCounters(r.regs, rastRegPerfCounters)
}

// WaitCmdDMA blocks until the rasterizer's read DMA of the previously
// submitted command buffer has completed.
func (r *Rasterizer) WaitCmdDMA() {
	r.cmdDMADoneCur.Wait()
}

// WaitCmd blocks until the rasterizer has drained its command pipeline
// (used after wait_idle/wait_clear_idle barriers and at end of frame).
func (r *Rasterizer) WaitCmd() {
	r.cmdDoneCur.Wait()
}

// SubmitCommands kicks off DMA of words 32-bit words starting at the given
// physical address. Panics (ProtocolViolation) if the rasterizer's command
// DMA engine is not idle — that can only happen if the single-submitter
// invariant was violated.
func (r *Rasterizer) SubmitCommands(phys uint64, words int) {
	r.lock()
	defer r.unlock()

	if r.regs.ReadU32(rastRegCmdDMAIdle) != 1 {
		panic(ErrDMABusy)
	}

	// Pre-acknowledge any stale completion so the next Wait blocks until
	// the completion caused by *this* submission specifically.
	r.cmdDMADoneCur.Acknowledge()
	r.cmdDoneCur.Acknowledge()

	r.regs.WriteU32(rastRegCmdAddr64, uint32(phys>>6))
	r.regs.WriteU32(rastRegCmdWords, uint32(words))
	ctrl := r.regs.ReadU32(rastRegCmdCtrl)
	r.regs.WriteU32(rastRegCmdCtrl, ctrl^1)
}

// SetBuffers programs the frame-buffer and depth-buffer base addresses.
func (r *Rasterizer) SetBuffers(frameBuffer, depthBuffer uint64) {
	r.lock()
	defer r.unlock()
	r.regs.WriteU32(rastRegFBBase, uint32(frameBuffer))
	r.regs.WriteU32(rastRegZBase, uint32(depthBuffer))
}

// Close halts the interrupt goroutine (best effort — see DisplayController.Close).
func (r *Rasterizer) Close() error {
	close(r.stop)
	_ = r.uio.DisableIRQ()
	return r.uio.Close()
}
