// errors.go - error taxonomy for the device HAL

package hal

import "errors"

// ErrDeviceNotFound is returned when a named UIO device cannot be located
// under /sys/class/uio. Construction-time only.
var ErrDeviceNotFound = errors.New("hal: uio device not found")

// ErrDMABusy is a ProtocolViolation: the caller tried to submit a command
// buffer while the rasterizer's previous DMA read was still in flight.
// This cannot happen for a well-formed single-submitter command stream;
// hitting it means two goroutines raced a submit, which is a programmer
// error and is not recoverable.
var ErrDMABusy = errors.New("hal: rasterizer command DMA still in flight")
