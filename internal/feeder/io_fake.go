package feeder

// FakeIO is a test double that records setpoint writes and serves scripted inputs.
type FakeIO struct {
	// Next is copied into the caller's snapshot on every UpdateInputs.
	Next Inputs

	// Writes contains every SetMotorVoltage value, in order.
	Writes []float64

	// Updates counts UpdateInputs calls.
	Updates int
}

// NewFakeIO creates a FakeIO reporting a connected motor.
func NewFakeIO() *FakeIO {
	return &FakeIO{Next: Inputs{MotorConnected: true}}
}

// UpdateInputs overwrites inputs with Next.
func (f *FakeIO) UpdateInputs(inputs *Inputs) {
	f.Updates++
	*inputs = f.Next
}

// SetMotorVoltage records output.
func (f *FakeIO) SetMotorVoltage(output float64) {
	f.Writes = append(f.Writes, output)
}
