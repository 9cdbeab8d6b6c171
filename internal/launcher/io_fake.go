package launcher

// FakeIO is a test double that records setpoint writes and serves scripted inputs.
type FakeIO struct {
	Next    Inputs
	Writes  []float64
	Updates int
}

// NewFakeIO creates a FakeIO reporting a connected motor.
func NewFakeIO() *FakeIO {
	return &FakeIO{Next: Inputs{MotorConnected: true}}
}

// UpdateInputs copies Next into inputs and counts the call.
func (f *FakeIO) UpdateInputs(inputs *Inputs) {
	f.Updates++
	*inputs = f.Next
}

// SetMotorRPS records the commanded speed.
func (f *FakeIO) SetMotorRPS(rps float64) {
	f.Writes = append(f.Writes, rps)
}
