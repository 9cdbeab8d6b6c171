package motorctl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Holding register map of the motor controller.
const (
	RegControlMode = 0 // Mode
	RegSetpoint    = 1 // duty × 1000 or rps × 10

	RegStatus        = 16 // bit0: fault
	RegVelocity      = 17 // rps × 10
	RegOutput        = 18 // duty × 1000
	RegSupplyCurrent = 19 // amps × 100
	RegTemperature   = 20 // celsius × 10

	statusBlockLen = 5
)

const (
	scaleDuty     = 1000
	scaleVelocity = 10
	scaleCurrent  = 100
	scaleTemp     = 10

	statusFault = 1 << 0
)

// MaxVelocityRPS is the largest velocity setpoint the setpoint register can
// hold. Larger commands are clamped to it.
const MaxVelocityRPS = float64(math.MaxInt16) / scaleVelocity

// Mode is the controller's control mode register value.
type Mode uint16

const (
	ModeNeutral   Mode = 0
	ModeDutyCycle Mode = 1
	ModeVelocity  Mode = 2
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNeutral:
		return "neutral"
	case ModeDutyCycle:
		return "duty_cycle"
	case ModeVelocity:
		return "velocity"
	default:
		return fmt.Sprintf("mode(%d)", uint16(m))
	}
}

// encodeCommand packs mode and setpoint into the two control registers.
func encodeCommand(mode Mode, value float64) []byte {
	scale := 0.0
	switch mode {
	case ModeDutyCycle:
		scale = scaleDuty
	case ModeVelocity:
		scale = scaleVelocity
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:], uint16(mode))
	binary.BigEndian.PutUint16(out[2:], uint16(toInt16(value*scale)))
	return out
}

// decodeStatus unpacks the status block starting at RegStatus.
func decodeStatus(b []byte) (Status, error) {
	if len(b) < statusBlockLen*2 {
		return Status{}, fmt.Errorf("status block: got %d bytes, want %d", len(b), statusBlockLen*2)
	}
	reg := func(i int) int16 {
		return int16(binary.BigEndian.Uint16(b[i*2:]))
	}
	return Status{
		Connected:     true,
		Fault:         uint16(reg(0))&statusFault != 0,
		Velocity:      float64(reg(1)) / scaleVelocity,
		Output:        float64(reg(2)) / scaleDuty,
		SupplyCurrent: float64(uint16(reg(3))) / scaleCurrent,
		Temperature:   float64(reg(4)) / scaleTemp,
	}, nil
}

func toInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
