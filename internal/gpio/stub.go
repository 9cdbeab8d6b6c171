//go:build !linux

package gpio

// RealReader has no backing device off Linux; hardware mode fails at startup.
type RealReader struct{}

func NewRealReader(chipName string, offset int, activeLow bool) (*RealReader, error) {
	return nil, ErrUnsupported
}

func (r *RealReader) Read() (bool, error) { return false, ErrUnsupported }

func (r *RealReader) Close() error { return nil }
