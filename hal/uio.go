// uio.go - user-space I/O device discovery, MMIO mapping and interrupt wait
//
// Grounded on umd/src/hal/uio.rs: a UIO device is found by matching
// /sys/class/uio/uioN/name, mapped via mmap with offset = mapping_index *
// 4096, and interrupts are a 4-byte read on the device node (enable by
// writing 1, disable by writing 0).

package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Uio is an open handle to a /dev/uioN device node.
type Uio struct {
	f      *os.File
	fd     int
	number int
}

// OpenUio opens /dev/uio<number> directly.
func OpenUio(number int) (*Uio, error) {
	path := fmt.Sprintf("/dev/uio%d", number)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("hal: open %s: %w", path, err)
	}
	return &Uio{f: f, fd: int(f.Fd()), number: number}, nil
}

// OpenNamed finds the UIO device whose /sys/class/uio/uioN/name matches
// name exactly and opens it. Returns ErrDeviceNotFound if none matches.
func OpenNamed(name string) (*Uio, error) {
	n, err := findUioNumber(name)
	if err != nil {
		return nil, err
	}
	return OpenUio(n)
}

func findUioNumber(name string) (int, error) {
	entries, err := os.ReadDir("/sys/class/uio")
	if err != nil {
		return 0, fmt.Errorf("hal: %w: %v", ErrDeviceNotFound, err)
	}
	for _, e := range entries {
		namePath := filepath.Join("/sys/class/uio", e.Name(), "name")
		data, err := os.ReadFile(namePath)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != name {
			continue
		}
		if !strings.HasPrefix(e.Name(), "uio") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "uio"))
		if err != nil {
			continue
		}
		return n, nil
	}
	return 0, ErrDeviceNotFound
}

// Map mmaps the given mapping index (a UIO device may expose several
// register blocks, each as its own /sys/class/uio/uioN/maps/mapI). The
// mapping size is read from sysfs; the mmap offset is mapping*4096 per the
// UIO ABI.
func (u *Uio) Map(mapping int) (*MemoryMap, error) {
	sizePath := fmt.Sprintf("/sys/class/uio/uio%d/maps/map%d/size", u.number, mapping)
	raw, err := os.ReadFile(sizePath)
	if err != nil {
		return nil, fmt.Errorf("hal: read %s: %w", sizePath, err)
	}
	hexStr := strings.TrimSpace(string(raw))
	hexStr = strings.TrimPrefix(hexStr, "0x")
	size, err := strconv.ParseUint(hexStr, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("hal: parse map size %q: %w", string(raw), err)
	}

	data, err := unix.Mmap(u.fd, int64(mapping)*4096, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("hal: mmap uio%d map%d: %w", u.number, mapping, err)
	}
	return newMemoryMap(data), nil
}

// EnableIRQ unmasks interrupt delivery for this device.
func (u *Uio) EnableIRQ() error {
	return u.writeU32(1)
}

// DisableIRQ masks interrupt delivery for this device.
func (u *Uio) DisableIRQ() error {
	return u.writeU32(0)
}

func (u *Uio) writeU32(v uint32) error {
	var buf [4]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	n, err := unix.Write(u.fd, buf[:])
	if err != nil {
		return fmt.Errorf("hal: uio irq ctrl write: %w", err)
	}
	if n != 4 {
		return fmt.Errorf("hal: uio irq ctrl write: short write %d/4", n)
	}
	return nil
}

// WaitIRQ blocks until the kernel UIO driver signals one interrupt
// (delivered as a 4-byte read returning the interrupt count). Intended to
// be called in a loop from a dedicated goroutine.
func (u *Uio) WaitIRQ() error {
	var buf [4]byte
	for {
		n, err := unix.Read(u.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("hal: uio irq wait: %w", err)
		}
		if n != 4 {
			return fmt.Errorf("hal: uio irq wait: short read %d/4", n)
		}
		return nil
	}
}

// Close closes the underlying device node.
func (u *Uio) Close() error {
	return u.f.Close()
}
