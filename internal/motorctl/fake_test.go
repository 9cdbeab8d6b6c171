package motorctl

import (
	"encoding/binary"
	"errors"
)

// fakeConn is an in-memory register file standing in for a controller.
type fakeConn struct {
	regs     [32]uint16
	writes   int
	readErr  error
	writeErr error
	closed   bool
}

func (c *fakeConn) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	out := make([]byte, quantity*2)
	for i := uint16(0); i < quantity; i++ {
		binary.BigEndian.PutUint16(out[i*2:], c.regs[address+i])
	}
	return out, nil
}

func (c *fakeConn) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	if c.writeErr != nil {
		return nil, c.writeErr
	}
	if len(value) != int(quantity)*2 {
		return nil, errors.New("length mismatch")
	}
	for i := uint16(0); i < quantity; i++ {
		c.regs[address+i] = binary.BigEndian.Uint16(value[i*2:])
	}
	c.writes++
	return nil, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) setpoint() int16 {
	return int16(c.regs[RegSetpoint])
}

// dialSequence returns a Dialer that hands out conns (or errors) in order.
type dialSequence struct {
	results []any // *fakeConn or error
	calls   int
}

func (s *dialSequence) dial() (Conn, error) {
	r := s.results[s.calls]
	if s.calls < len(s.results)-1 {
		s.calls++
	}
	switch v := r.(type) {
	case *fakeConn:
		return v, nil
	case error:
		return nil, v
	}
	return nil, errors.New("bad dial result")
}
