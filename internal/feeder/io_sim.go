package feeder

import (
	"time"

	"github.com/sweeney/robot-subsystems/internal/sim"
)

const (
	simFreeSpeedRPS  = 90
	simTimeConstant  = 60 * time.Millisecond
	simStallCurrent  = 40
	simPieceMinSpeed = 5 // rps; the roller pulls a piece in above this
)

// SimIO runs the feeder against a simulated motor.
// Each UpdateInputs advances the model by one loop period.
type SimIO struct {
	motor *sim.Motor
	dt    time.Duration
}

// NewSimIO creates a simulated feeder stepped by period on every update.
func NewSimIO(period time.Duration) *SimIO {
	return &SimIO{
		motor: sim.NewMotor(simFreeSpeedRPS, simTimeConstant, simStallCurrent),
		dt:    period,
	}
}

// UpdateInputs advances the model and reports its readings.
func (s *SimIO) UpdateInputs(inputs *Inputs) {
	s.motor.Step(s.dt)
	st := s.motor.State()
	*inputs = Inputs{
		MotorConnected:     st.Connected,
		MotorOutput:        st.Output,
		MotorVelocity:      st.Velocity,
		MotorSupplyCurrent: st.SupplyCurrent,
		MotorTemperature:   st.Temperature,
		PieceDetected:      st.Connected && st.Velocity > simPieceMinSpeed,
	}
}

// SetMotorVoltage commands the simulated roller.
func (s *SimIO) SetMotorVoltage(output float64) {
	s.motor.SetDutyCycle(output)
}

// SetConnected simulates the motor controller dropping off the bus.
func (s *SimIO) SetConnected(connected bool) {
	s.motor.SetConnected(connected)
}
