package subsystem

import (
	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/telemetry"
)

// Periodic is the entry point the scheduler calls once per control cycle.
type Periodic interface {
	Name() string
	Periodic()
}

// Deps are the collaborators shared by every concrete subsystem.
type Deps struct {
	Telemetry telemetry.Sink
	Alerts    *alert.Group
	Logger    *zap.SugaredLogger
}

// WithDefaults fills nil collaborators with no-op implementations.
func (d Deps) WithDefaults() Deps {
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Discard{}
	}
	if d.Alerts == nil {
		d.Alerts = alert.NewGroup()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return d
}

// Status is a point-in-time view of one subsystem for operator surfaces.
// It is a value type, safe to keep after the control loop moves on.
type Status struct {
	Name      string
	State     string
	Setpoint  float64
	Connected bool
	Inputs    any
}
