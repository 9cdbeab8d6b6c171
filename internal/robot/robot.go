// Package robot ties the subsystems to the robot's operating mode and is the
// single place operator commands are applied.
package robot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/metrics"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

var (
	ErrUnknownMode      = errors.New("unknown mode")
	ErrUnknownSubsystem = errors.New("unknown subsystem")
	ErrModeTransition   = errors.New("mode transition not allowed")

	// ErrDisabled rejects any command other than STOP while the robot is
	// not enabled.
	ErrDisabled = errors.New("robot is not enabled")
)

// Command asks a subsystem to enter a state, both by name.
type Command struct {
	Subsystem string `json:"subsystem"`
	State     string `json:"state"`
}

// Robot owns the mode machine and both subsystems. It is not safe for
// concurrent use; other goroutines reach it through Request.
type Robot struct {
	mode     *fsm.FSM
	feeder   *feeder.Subsystem
	launcher *launcher.Subsystem
	logger   *zap.SugaredLogger

	estopAlert *alert.Alert
}

// New creates a disabled robot. Alerts may be nil.
func New(f *feeder.Subsystem, l *launcher.Subsystem, alerts *alert.Group, logger *zap.SugaredLogger) *Robot {
	if alerts == nil {
		alerts = alert.NewGroup()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Robot{
		feeder:     f,
		launcher:   l,
		logger:     logger,
		estopAlert: alerts.New("Robot is emergency stopped.", alert.LevelWarning),
	}
	r.mode = newModeFSM(r.enter)
	metrics.SetMode(string(ModeDisabled), modeNames())
	return r
}

func modeNames() []string {
	names := make([]string, 0, len(Modes()))
	for _, m := range Modes() {
		names = append(names, string(m))
	}
	return names
}

// Mode returns the current mode.
func (r *Robot) Mode() Mode {
	return Mode(r.mode.Current())
}

// SetMode moves the robot to target. It returns false when the robot was
// already in target.
func (r *Robot) SetMode(ctx context.Context, target Mode) (bool, error) {
	if _, err := ParseMode(string(target)); err != nil {
		return false, err
	}
	if r.Mode() == target {
		return false, nil
	}

	event := eventFor(target)
	if !r.mode.Can(event) {
		return false, fmt.Errorf("%w: %s -> %s", ErrModeTransition, r.Mode(), target)
	}
	if err := r.mode.Event(ctx, event); err != nil {
		return false, fmt.Errorf("mode %s: %w", target, err)
	}
	return true, nil
}

func (r *Robot) enter(from, to Mode) {
	r.logger.Infow("mode changed", "from", from, "to", to)
	metrics.SetMode(string(to), modeNames())
	r.estopAlert.Set(to == ModeEStopped)

	if to != ModeEnabled {
		r.stopAll()
	}
}

func (r *Robot) stopAll() {
	r.feeder.SetDesiredState(feeder.StateStop)
	r.launcher.SetDesiredState(launcher.StateStop)
}

// Apply sends cmd to its subsystem. The bool is the subsystem's
// SetDesiredState result.
func (r *Robot) Apply(cmd Command) (bool, error) {
	switch {
	case strings.EqualFold(cmd.Subsystem, feeder.Name):
		state, err := feeder.ParseState(cmd.State)
		if err != nil {
			return false, err
		}
		if state != feeder.StateStop && r.Mode() != ModeEnabled {
			return false, fmt.Errorf("%w: %s %s while %s", ErrDisabled, feeder.Name, state, r.Mode())
		}
		return r.feeder.SetDesiredState(state), nil

	case strings.EqualFold(cmd.Subsystem, launcher.Name):
		state, err := launcher.ParseState(cmd.State)
		if err != nil {
			return false, err
		}
		if state != launcher.StateStop && r.Mode() != ModeEnabled {
			return false, fmt.Errorf("%w: %s %s while %s", ErrDisabled, launcher.Name, state, r.Mode())
		}
		return r.launcher.SetDesiredState(state), nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownSubsystem, cmd.Subsystem)
	}
}

// Subsystems returns the subsystems in scheduling order.
func (r *Robot) Subsystems() []subsystem.Periodic {
	return []subsystem.Periodic{r.feeder, r.launcher}
}

// Statuses returns a status snapshot of every subsystem.
func (r *Robot) Statuses() []subsystem.Status {
	return []subsystem.Status{r.feeder.Status(), r.launcher.Status()}
}

// Shutdown stops every subsystem regardless of mode.
func (r *Robot) Shutdown() {
	r.stopAll()
}
