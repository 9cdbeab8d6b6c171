package launcher

import (
	"github.com/sweeney/robot-subsystems/internal/motorctl"
)

// Motor is the cached motor-controller model the hardware IO talks to.
type Motor interface {
	Set(mode motorctl.Mode, value float64)
	Status() motorctl.Status
}

// HardwareIO drives the launcher wheel in the controller's velocity mode.
type HardwareIO struct {
	motor Motor
}

// NewHardwareIO wraps a motor controller driver.
func NewHardwareIO(motor Motor) *HardwareIO {
	return &HardwareIO{motor: motor}
}

// UpdateInputs copies the driver's cached status; it never touches the bus.
func (h *HardwareIO) UpdateInputs(inputs *Inputs) {
	st := h.motor.Status()
	*inputs = Inputs{
		MotorConnected:     st.Connected,
		MotorVelocity:      st.Velocity,
		MotorOutput:        st.Output,
		MotorSupplyCurrent: st.SupplyCurrent,
		MotorTemperature:   st.Temperature,
		MotorFault:         st.Fault,
	}
}

// SetMotorRPS queues a velocity-mode command for the driver.
func (h *HardwareIO) SetMotorRPS(rps float64) {
	h.motor.Set(motorctl.ModeVelocity, rps)
}
