// display_controller.go - scan-out page flipping and end-of-frame IRQ
//
// Grounded on umd/src/hal/display_controller.rs. Registers:
// {irq_status, irq_mask, width, height, page_addr, words, ctrl}. The draw-
// done IRQ (bit 1) is the only one enabled; a background goroutine waits
// for it and fans it out through a Watch so callers can await
// WaitEndOfFrame without polling.

package hal

const (
	dcRegIRQStatus = 0 * 4
	dcRegIRQMask   = 1 * 4
	dcRegWidth     = 2 * 4
	dcRegHeight    = 3 * 4
	dcRegPageAddr  = 4 * 4
	dcRegWords     = 5 * 4
	dcRegCtrl      = 6 * 4
)

const dcIRQMaskDrawDone = 0b10

// DisplayController drives the scan-out engine: page flips and
// end-of-frame interrupt delivery.
type DisplayController struct {
	uio  *Uio
	regs *MemoryMap

	drawDone *Watch
	stop     chan struct{}
	irqDone  chan struct{}
}

// NewDisplayController maps the display controller's register block,
// programs its buffer size, enables the draw-done IRQ and starts the
// background interrupt listener.
func NewDisplayController(uio *Uio) (*DisplayController, error) {
	m, err := uio.Map(0)
	if err != nil {
		return nil, err
	}

	dc := &DisplayController{
		uio:      uio,
		regs:     m,
		drawDone: NewWatch(),
		stop:     make(chan struct{}),
		irqDone:  make(chan struct{}),
	}

	w := dc.Width()
	h := dc.Height()
	size := w * h * 3
	if size%8 != 0 {
		panic("hal: display controller framebuffer size must be a multiple of 8 bytes")
	}

	m.WriteU32(dcRegCtrl, 0)
	m.WriteU32(dcRegWords, uint32(size/8))
	m.WriteU32(dcRegIRQMask, dcIRQMaskDrawDone)

	go dc.irqLoop()

	return dc, nil
}

func (dc *DisplayController) irqLoop() {
	defer close(dc.irqDone)
	for {
		if err := dc.uio.EnableIRQ(); err != nil {
			return
		}
		if err := dc.uio.WaitIRQ(); err != nil {
			return
		}
		select {
		case <-dc.stop:
			return
		default:
		}
		status := dc.regs.ReadU32(dcRegIRQStatus)
		dc.regs.WriteU32(dcRegIRQStatus, status)
		dc.drawDone.Broadcast()
	}
}

// Width returns the configured frame width in pixels.
func (dc *DisplayController) Width() int {
	return int(dc.regs.ReadU32(dcRegWidth))
}

// Height returns the configured frame height in pixels.
func (dc *DisplayController) Height() int {
	return int(dc.regs.ReadU32(dcRegHeight))
}

// NewCursor returns a cursor for observing end-of-frame completions.
func (dc *DisplayController) NewCursor() *Cursor {
	return dc.drawDone.Cursor()
}

// WaitEndOfFrame blocks until the display controller signals the current
// scan-out has completed.
func (dc *DisplayController) WaitEndOfFrame(c *Cursor) {
	c.Wait()
}

// DrawFrame programs the scan-out base address (must be page-aligned) and
// kicks the page flip.
func (dc *DisplayController) DrawFrame(phys uint64) {
	if phys&0xFFF != 0 {
		panic("hal: display controller frame address must be page-aligned")
	}
	dc.regs.WriteU32(dcRegPageAddr, uint32(phys>>12))
	dc.regs.WriteU32(dcRegCtrl, 1)
}

// Close signals the interrupt goroutine to stop and disables scan-out.
// There is no way to cancel a goroutine blocked in WaitIRQ (the same
// limitation the original driver has with an aborted async task if the
// underlying wait never wakes) — disabling the IRQ here just stops any
// further fan-out after the in-flight wait, if any, returns.
func (dc *DisplayController) Close() error {
	close(dc.stop)
	_ = dc.uio.DisableIRQ()
	dc.regs.WriteU32(dcRegCtrl, 0)
	return dc.uio.Close()
}
