// dma.go - contiguous DMA buffer allocator
//
// Out of scope per the specification: "the DMA-buf file descriptor
// allocator" is named at the boundary only. This is a minimal real
// implementation sufficient for gl to compile and test against: it opens a
// platform character device, asks for a page-aligned contiguous region via
// ioctl, and exposes mmap-backed CPU access plus cache-maintenance hooks.

package hal

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// dmaBufDevicePath is the character device this driver expects the
// contiguous-memory allocator to expose. Not part of any public API; the
// allocator's wire protocol is a platform detail outside this repository's
// scope.
const dmaBufDevicePath = "/dev/udmabuf-gpu0"

// dmaAllocRequest mirrors the ioctl argument struct the allocator driver
// expects: requested size in, physical base address out.
type dmaAllocRequest struct {
	Size uint64
	Phys uint64
}

const dmaAllocIoctl = 0xC0104400 // platform-specific allocation request code

// Userdma is a handle to the contiguous DMA buffer allocator device.
type Userdma struct {
	f  *os.File
	fd int
}

// OpenUserdma opens the allocator device node.
func OpenUserdma() (*Userdma, error) {
	f, err := os.OpenFile(dmaBufDevicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("hal: open dma allocator: %w", err)
	}
	return &Userdma{f: f, fd: int(f.Fd())}, nil
}

// DmaBuf is a physically-contiguous, page-aligned, zero-initialized
// buffer, identified by both a CPU file descriptor and its physical base
// address for handing to a DMA-capable peripheral.
type DmaBuf struct {
	f    *os.File
	phys uint64
	size int
	m    *MemoryMap
}

// AllocBuf allocates a zeroed, page-aligned, contiguous buffer of at least
// size bytes, rounded up to a page multiple.
func (u *Userdma) AllocBuf(size int) (*DmaBuf, error) {
	rounded := (size + pageSize - 1) / pageSize * pageSize

	req := dmaAllocRequest{Size: uint64(rounded)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(u.fd), uintptr(dmaAllocIoctl),
		uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return nil, fmt.Errorf("hal: dma alloc ioctl: %w", errno)
	}

	return &DmaBuf{f: u.f, phys: req.Phys, size: rounded}, nil
}

// Phys returns the physical base address, suitable for register programming.
func (d *DmaBuf) Phys() uint64 {
	return d.phys
}

// Size returns the allocated (page-rounded) size in bytes.
func (d *DmaBuf) Size() int {
	return d.size
}

// Map returns a CPU-visible mapping of the buffer, mapping it on first use.
func (d *DmaBuf) Map() (*MemoryMap, error) {
	if d.m != nil {
		return d.m, nil
	}
	data, err := unix.Mmap(int(d.f.Fd()), int64(d.phys), d.size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("hal: dma buf mmap: %w", err)
	}
	d.m = newMemoryMap(data)
	return d.m, nil
}

// SyncStart performs CPU cache maintenance before the CPU begins writing
// to the buffer (invalidate any stale cache lines from a prior DMA read).
func (d *DmaBuf) SyncStart() {
	if d.m != nil {
		_ = unix.Msync(d.m.Bytes(), unix.MS_SYNC)
	}
}

// SyncEnd performs CPU cache maintenance after the CPU finishes writing,
// before handing the buffer's physical address to the DMA-capable device.
func (d *DmaBuf) SyncEnd() {
	if d.m != nil {
		_ = unix.Msync(d.m.Bytes(), unix.MS_SYNC)
	}
}

// WithSync runs fn with SyncStart/SyncEnd bracketing it.
func (d *DmaBuf) WithSync(fn func()) {
	d.SyncStart()
	fn()
	d.SyncEnd()
}

// Close unmaps the buffer.
func (d *DmaBuf) Close() error {
	if d.m != nil {
		return d.m.Close()
	}
	return nil
}
