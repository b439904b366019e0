package hal

import "testing"

func TestPerfCountersDiffWrapsSafely(t *testing.T) {
	previous := PerfCounters{
		BusyCycles: 0xFFFFFFF0,
		Stalls:     Stalls{WalkerSearching: 10},
		FIFODepth:  [9]uint32{1, 2, 3, 4, 5, 6, 7, 8, 9},
	}
	current := PerfCounters{
		BusyCycles: 4, // wrapped past 0xFFFFFFFF
		Stalls:     Stalls{WalkerSearching: 12},
		FIFODepth:  [9]uint32{2, 2, 3, 4, 5, 6, 7, 8, 10},
	}

	diff := current.Diff(previous)

	if diff.BusyCycles != 20 {
		t.Fatalf("BusyCycles diff = %d, want 20", diff.BusyCycles)
	}
	if diff.Stalls.WalkerSearching != 2 {
		t.Fatalf("WalkerSearching diff = %d, want 2", diff.Stalls.WalkerSearching)
	}
	if diff.FIFODepth[0] != 1 {
		t.Fatalf("FIFODepth[0] diff = %d, want 1", diff.FIFODepth[0])
	}
	if diff.FIFODepth[1] != 0 {
		t.Fatalf("FIFODepth[1] diff = %d, want 0", diff.FIFODepth[1])
	}
	if diff.FIFODepth[8] != 1 {
		t.Fatalf("FIFODepth[8] diff = %d, want 1", diff.FIFODepth[8])
	}
}

func TestReadPerfCountersLayout(t *testing.T) {
	m := newMemoryMap(make([]byte, 17*4))
	for i := 0; i < 17; i++ {
		m.WriteU32(uintptr(i)*4, uint32(i+1))
	}

	pc := readPerfCounters(m, 0)

	if pc.BusyCycles != 1 {
		t.Fatalf("BusyCycles = %d, want 1", pc.BusyCycles)
	}
	if pc.Stalls.WalkerSearching != 2 {
		t.Fatalf("WalkerSearching = %d, want 2", pc.Stalls.WalkerSearching)
	}
	if pc.Stalls.PixelStore != 8 {
		t.Fatalf("PixelStore = %d, want 8", pc.Stalls.PixelStore)
	}
	if pc.FIFODepth[0] != 9 {
		t.Fatalf("FIFODepth[0] = %d, want 9", pc.FIFODepth[0])
	}
	if pc.FIFODepth[8] != 17 {
		t.Fatalf("FIFODepth[8] = %d, want 17", pc.FIFODepth[8])
	}
}

func TestRasterizerSubmitCommandsRejectsWhenDMABusy(t *testing.T) {
	regs := newMemoryMap(make([]byte, 11*4))
	regs.WriteU32(rastRegCmdDMAIdle, 0)

	r := &Rasterizer{
		regs:          regs,
		cmdDone:       NewWatch(),
		cmdDMADone:    NewWatch(),
		cmdDoneCur:    NewWatch().Cursor(),
		cmdDMADoneCur: NewWatch().Cursor(),
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when cmd DMA is not idle")
		}
	}()
	r.SubmitCommands(0x1000, 64)
}

func TestRasterizerSubmitCommandsTogglesCtrlBit(t *testing.T) {
	regs := newMemoryMap(make([]byte, 11*4))
	regs.WriteU32(rastRegCmdDMAIdle, 1)
	regs.WriteU32(rastRegCmdCtrl, 0)

	r := &Rasterizer{
		regs:          regs,
		cmdDone:       NewWatch(),
		cmdDMADone:    NewWatch(),
		cmdDoneCur:    NewWatch().Cursor(),
		cmdDMADoneCur: NewWatch().Cursor(),
	}

	r.SubmitCommands(0x4000, 128)

	if got := regs.ReadU32(rastRegCmdCtrl); got != 1 {
		t.Fatalf("cmd ctrl = %d, want 1 after toggle", got)
	}
	if got := regs.ReadU32(rastRegCmdAddr64); got != uint32(0x4000>>6) {
		t.Fatalf("cmd addr = %#x, want %#x", got, uint32(0x4000>>6))
	}
	if got := regs.ReadU32(rastRegCmdWords); got != 128 {
		t.Fatalf("cmd words = %d, want 128", got)
	}

	r.SubmitCommands(0x4000, 128)
	if got := regs.ReadU32(rastRegCmdCtrl); got != 0 {
		t.Fatalf("cmd ctrl = %d, want 0 after second toggle", got)
	}
}
