// memmap.go - CPU mapping of a UIO register block or DMA buffer
//
// Every register access through a MemoryMap must be volatile: the
// rasterizer and display controller protocols depend on writes reaching
// the device in program order and reads not being cached across a
// submit/wait boundary. Go has no volatile keyword; sync/atomic loads and
// stores on the mapped memory are the idiomatic stand-in, matching the
// ordering guarantee the original driver gets from Rust's
// read_volatile/write_volatile.

package hal

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MemoryMap is a CPU-visible window onto a physical register block or DMA
// buffer, obtained via mmap.
type MemoryMap struct {
	data []byte
}

func newMemoryMap(data []byte) *MemoryMap {
	return &MemoryMap{data: data}
}

// NewTestMemoryMap wraps a plain byte slice as a MemoryMap without going
// through mmap, for use by fakes in other packages' tests.
func NewTestMemoryMap(data []byte) *MemoryMap {
	return newMemoryMap(data)
}

// Size returns the length of the mapping in bytes.
func (m *MemoryMap) Size() int {
	return len(m.data)
}

// Bytes exposes the raw mapping. Callers that need volatile register
// semantics must use ReadU32/WriteU32 instead of slicing into this
// directly for anything except bulk DMA-buffer payload copies.
func (m *MemoryMap) Bytes() []byte {
	return m.data
}

func (m *MemoryMap) ptr32(offset uintptr) *uint32 {
	if int(offset)+4 > len(m.data) {
		panic("hal: register offset out of range")
	}
	return (*uint32)(unsafe.Pointer(&m.data[offset]))
}

// ReadU32 performs a volatile 32-bit load at the given byte offset.
func (m *MemoryMap) ReadU32(offset uintptr) uint32 {
	return atomic.LoadUint32(m.ptr32(offset))
}

// WriteU32 performs a volatile 32-bit store at the given byte offset.
func (m *MemoryMap) WriteU32(offset uintptr, v uint32) {
	atomic.StoreUint32(m.ptr32(offset), v)
}

// Close unmaps the region.
func (m *MemoryMap) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
