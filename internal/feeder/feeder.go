// Package feeder controls the roller that stores game pieces and feeds them
// into the launcher.
package feeder

import (
	"errors"
	"fmt"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/metrics"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

// Name is the telemetry namespace and alert prefix of the feeder.
const Name = "Feeder"

// State is the desired state of the feeder.
type State string

const (
	StateStop   State = "STOP"
	StateInward State = "INWARD"
)

// States returns every feeder state.
func States() []State {
	return []State{StateStop, StateInward}
}

// ErrUnknownState is returned by ParseState for names outside the enumeration.
var ErrUnknownState = errors.New("unknown feeder state")

// ParseState converts a state name to a State.
func ParseState(name string) (State, error) {
	for _, s := range States() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// DefaultSetpoints is the duty cycle applied in each state.
func DefaultSetpoints() subsystem.Setpoints[State, float64] {
	return subsystem.Setpoints[State, float64]{
		StateStop:   0.0,
		StateInward: 0.5,
	}
}

// Subsystem is the feeder controller.
type Subsystem struct {
	base      *subsystem.StateSubsystem[State]
	io        IO
	setpoints subsystem.Setpoints[State, float64]
	deps      subsystem.Deps

	inputs       Inputs
	setpoint     float64
	disconnected *alert.Alert
}

// New creates a feeder in the STOP state. The IO is owned by the subsystem
// from here on. States missing from setpoints run at the safe setpoint.
func New(io IO, setpoints subsystem.Setpoints[State, float64], deps subsystem.Deps) *Subsystem {
	deps = deps.WithDefaults()
	if missing := setpoints.Missing(States()...); len(missing) > 0 {
		deps.Logger.Warnf("feeder: no setpoint for %v, those states will stop the roller", missing)
	}

	return &Subsystem{
		base:         subsystem.NewStateSubsystem(Name, StateStop),
		io:           io,
		setpoints:    setpoints,
		deps:         deps,
		disconnected: deps.Alerts.New(Name+" motor is disconnected.", alert.LevelError),
	}
}

// Name returns the subsystem name.
func (f *Subsystem) Name() string {
	return f.base.Name()
}

// State returns the current desired state.
func (f *Subsystem) State() State {
	return f.base.State()
}

// SetDesiredState moves the feeder to state and writes its setpoint.
// Returns false, without touching the IO, when state is already current.
func (f *Subsystem) SetDesiredState(state State) bool {
	if !f.base.SetDesiredState(state) {
		return false
	}

	output, ok := f.setpoints.Lookup(state)
	if !ok {
		output = subsystem.SafeSetpoint
	}

	f.io.SetMotorVoltage(output)
	f.setpoint = output
	metrics.RecordSetpoint(Name, output)
	f.deps.Logger.Debugf("feeder: %s -> output %.3f", state, output)
	return true
}

// Periodic refreshes inputs, publishes them and updates the disconnect alert.
func (f *Subsystem) Periodic() {
	f.io.UpdateInputs(&f.inputs)
	f.deps.Telemetry.ProcessInputs(Name, f.inputs)
	f.disconnected.Set(!f.inputs.MotorConnected)
	metrics.SetConnected(Name, f.inputs.MotorConnected)
}

// Inputs returns a copy of the latest snapshot.
func (f *Subsystem) Inputs() Inputs {
	return f.inputs
}

// DisconnectedAlert returns the motor connectivity alert.
func (f *Subsystem) DisconnectedAlert() *alert.Alert {
	return f.disconnected
}

// Status returns a value snapshot for operator surfaces.
func (f *Subsystem) Status() subsystem.Status {
	return subsystem.Status{
		Name:      Name,
		State:     string(f.base.State()),
		Setpoint:  f.setpoint,
		Connected: f.inputs.MotorConnected,
		Inputs:    f.inputs,
	}
}
