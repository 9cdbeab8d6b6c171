// Package gpio reads the digital sensor lines subsystems watch, such as the
// feeder beam break. Linux builds use the GPIO character device.
package gpio

import "errors"

var (
	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("gpio: line closed")
	// ErrUnsupported is returned when the platform has no GPIO character device.
	ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")
)

// Reader reads one digital input line.
type Reader interface {
	// Read returns the logical state of the line (true = asserted).
	Read() (bool, error)

	Close() error
}

// DefaultChip is the GPIO chip the sensor lines live on.
const DefaultChip = "gpiochip0"
