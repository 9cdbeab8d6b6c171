package feeder

import (
	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/gpio"
	"github.com/sweeney/robot-subsystems/internal/motorctl"
)

// Motor is the cached motor-controller model the hardware IO talks to.
type Motor interface {
	Set(mode motorctl.Mode, value float64)
	Status() motorctl.Status
}

// HardwareIO drives the feeder roller through a motor controller and reads
// the game-piece beam break from a GPIO line. Neither call waits on hardware:
// the motor side is served from the driver's cache.
type HardwareIO struct {
	motor     Motor
	sensor    gpio.Reader
	logger    *zap.SugaredLogger
	sensorBad bool
}

// NewHardwareIO creates the hardware IO. sensor may be nil when no beam
// break is fitted.
func NewHardwareIO(motor Motor, sensor gpio.Reader, logger *zap.SugaredLogger) *HardwareIO {
	return &HardwareIO{motor: motor, sensor: sensor, logger: logger}
}

// UpdateInputs copies the latest controller status and samples the sensor.
func (h *HardwareIO) UpdateInputs(inputs *Inputs) {
	st := h.motor.Status()
	*inputs = Inputs{
		MotorConnected:     st.Connected,
		MotorOutput:        st.Output,
		MotorVelocity:      st.Velocity,
		MotorSupplyCurrent: st.SupplyCurrent,
		MotorTemperature:   st.Temperature,
		MotorFault:         st.Fault,
	}

	if h.sensor == nil {
		return
	}
	detected, err := h.sensor.Read()
	if err != nil {
		if !h.sensorBad {
			h.logger.Warnf("feeder: piece sensor: %v", err)
			h.sensorBad = true
		}
		return
	}
	if h.sensorBad {
		h.logger.Infof("feeder: piece sensor recovered")
		h.sensorBad = false
	}
	inputs.PieceDetected = detected
}

// SetMotorVoltage queues a duty-cycle command.
func (h *HardwareIO) SetMotorVoltage(output float64) {
	h.motor.Set(motorctl.ModeDutyCycle, output)
}
