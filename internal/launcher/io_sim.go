package launcher

import (
	"time"

	"github.com/sweeney/robot-subsystems/internal/sim"
)

// SimIO runs the launcher against a simulated flywheel.
type SimIO struct {
	motor *sim.Motor
	dt    time.Duration
}

// NewSimIO creates a simulated launcher stepped by period on every update.
func NewSimIO(period time.Duration) *SimIO {
	return &SimIO{
		motor: sim.NewMotor(110, 250*time.Millisecond, 60),
		dt:    period,
	}
}

// UpdateInputs advances the flywheel model one period and reads it.
func (s *SimIO) UpdateInputs(inputs *Inputs) {
	s.motor.Step(s.dt)
	st := s.motor.State()
	*inputs = Inputs{
		MotorConnected:     st.Connected,
		MotorVelocity:      st.Velocity,
		MotorOutput:        st.Output,
		MotorSupplyCurrent: st.SupplyCurrent,
		MotorTemperature:   st.Temperature,
	}
}

// SetMotorRPS sets the flywheel's target speed.
func (s *SimIO) SetMotorRPS(rps float64) {
	s.motor.SetVelocity(rps)
}

// SetConnected simulates the motor controller dropping off the bus.
func (s *SimIO) SetConnected(connected bool) {
	s.motor.SetConnected(connected)
}
