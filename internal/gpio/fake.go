package gpio

import "sync"

// FakeLine is a Reader backed by a settable level, standing in for the
// feeder beam break in tests.
type FakeLine struct {
	mu     sync.Mutex
	level  bool
	err    error
	reads  int
	closed bool
}

// NewFakeLine returns a line reading level.
func NewFakeLine(level bool) *FakeLine {
	return &FakeLine{level: level}
}

// Set changes the level seen by the next Read.
func (f *FakeLine) Set(level bool) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Fail makes every Read return err until Fail(nil).
func (f *FakeLine) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeLine) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.closed {
		return false, ErrClosed
	}
	if f.err != nil {
		return false, f.err
	}
	return f.level, nil
}

// Reads reports how many times Read was called.
func (f *FakeLine) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
