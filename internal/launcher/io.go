package launcher

// Inputs is the launcher's hardware snapshot, overwritten in place every cycle.
type Inputs struct {
	MotorConnected     bool    `json:"motor_connected"`
	MotorVelocity      float64 `json:"motor_velocity_rps"`
	MotorOutput        float64 `json:"motor_output"`
	MotorSupplyCurrent float64 `json:"motor_supply_current_amps"`
	MotorTemperature   float64 `json:"motor_temperature_celsius"`
	MotorFault         bool    `json:"motor_fault"`
}

// IO is the hardware seam of the launcher.
// Implementations must not block and report disconnects through
// Inputs.MotorConnected rather than failing.
type IO interface {
	// UpdateInputs overwrites inputs with the latest hardware readings.
	UpdateInputs(inputs *Inputs)

	// SetMotorRPS commands the wheel's closed-loop speed in rotations per second.
	SetMotorRPS(rps float64)
}
