// Package launcher controls the compliant wheels that launch game pieces.
package launcher

import (
	"errors"
	"fmt"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/metrics"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

// Name is the subsystem name used for telemetry namespaces and alerts.
const Name = "Launcher"

// State is the launcher's desired wheel state.
type State string

const (
	StateStop   State = "STOP"
	StateLaunch State = "LAUNCH"
)

// States lists every launcher state.
func States() []State {
	return []State{StateStop, StateLaunch}
}

// ErrUnknownState is returned by ParseState for names outside States.
var ErrUnknownState = errors.New("unknown launcher state")

// ParseState converts an exact, case-sensitive state name to a State.
func ParseState(name string) (State, error) {
	for _, s := range States() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// DefaultSetpoints is the wheel speed (rps) of each state.
func DefaultSetpoints() subsystem.Setpoints[State, float64] {
	return subsystem.Setpoints[State, float64]{
		StateStop:   0.0,
		StateLaunch: 100.0,
	}
}

// Subsystem is the launcher controller.
type Subsystem struct {
	base      *subsystem.StateSubsystem[State]
	io        IO
	setpoints subsystem.Setpoints[State, float64]
	deps      subsystem.Deps

	inputs       Inputs
	setpoint     float64
	disconnected *alert.Alert
}

// New creates a launcher in the STOP state.
func New(io IO, setpoints subsystem.Setpoints[State, float64], deps subsystem.Deps) *Subsystem {
	deps = deps.WithDefaults()
	if missing := setpoints.Missing(States()...); len(missing) > 0 {
		deps.Logger.Warnf("launcher: no setpoint for %v, those states will stop the wheel", missing)
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
func (l *Subsystem) Name() string {
	return l.base.Name()
}

// State returns the current desired state.
func (l *Subsystem) State() State {
	return l.base.State()
}

// SetDesiredState moves the launcher to state and commands its wheel speed.
// Returns false, without touching the IO, when state is already current.
func (l *Subsystem) SetDesiredState(state State) bool {
	if !l.base.SetDesiredState(state) {
		return false
	}

	rps, ok := l.setpoints.Lookup(state)
	if !ok {
		rps = subsystem.SafeSetpoint
	}

	l.io.SetMotorRPS(rps)
	l.setpoint = rps
	metrics.RecordSetpoint(Name, rps)
	l.deps.Logger.Debugf("launcher: %s -> %.1f rps", state, rps)
	return true
}

// Periodic refreshes inputs, publishes them and updates the disconnect alert.
func (l *Subsystem) Periodic() {
	l.io.UpdateInputs(&l.inputs)
	l.deps.Telemetry.ProcessInputs(Name, l.inputs)
	l.disconnected.Set(!l.inputs.MotorConnected)
	metrics.SetConnected(Name, l.inputs.MotorConnected)
}

// Inputs returns a copy of the latest hardware snapshot.
func (l *Subsystem) Inputs() Inputs {
	return l.inputs
}

// DisconnectedAlert returns the alert raised while the motor is off the bus.
func (l *Subsystem) DisconnectedAlert() *alert.Alert {
	return l.disconnected
}

// Status summarizes the launcher for the status page.
func (l *Subsystem) Status() subsystem.Status {
	return subsystem.Status{
		Name:      Name,
		State:     string(l.base.State()),
		Setpoint:  l.setpoint,
		Connected: l.inputs.MotorConnected,
		Inputs:    l.inputs,
	}
}
