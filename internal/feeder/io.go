package feeder

// Inputs is the feeder's hardware snapshot, overwritten in place every cycle.
type Inputs struct {
	MotorConnected     bool    `json:"motor_connected"`
	MotorOutput        float64 `json:"motor_output"`
	MotorVelocity      float64 `json:"motor_velocity_rps"`
	MotorSupplyCurrent float64 `json:"motor_supply_current_amps"`
	MotorTemperature   float64 `json:"motor_temperature_celsius"`
	MotorFault         bool    `json:"motor_fault"`
	PieceDetected      bool    `json:"piece_detected"`
}

// IO is the hardware seam of the feeder.
// Implementations must not block and must not fail on a transient
// disconnect: they report it through Inputs.MotorConnected instead.
type IO interface {
	// UpdateInputs fills inputs from the current hardware state.
	UpdateInputs(inputs *Inputs)

	// SetMotorVoltage commands the roller as a duty-cycle fraction in [-1, 1].
	SetMotorVoltage(output float64)
}
