package robot

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Mode is the operating mode of the whole robot.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeEnabled  Mode = "enabled"
	ModeEStopped Mode = "estopped"
)

const (
	eventEnable  = "enable"
	eventDisable = "disable"
	eventEStop   = "estop"
)

// Modes returns every mode.
func Modes() []Mode {
	return []Mode{ModeDisabled, ModeEnabled, ModeEStopped}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// An e-stopped robot must be disabled before it can be enabled again.
var modeTransitions = fsm.Events{
	{Name: eventEnable, Src: []string{string(ModeDisabled)}, Dst: string(ModeEnabled)},
	{Name: eventDisable, Src: []string{string(ModeEnabled), string(ModeEStopped)}, Dst: string(ModeDisabled)},
	{Name: eventEStop, Src: []string{string(ModeDisabled), string(ModeEnabled)}, Dst: string(ModeEStopped)},
}

func eventFor(target Mode) string {
	switch target {
	case ModeEnabled:
		return eventEnable
	case ModeDisabled:
		return eventDisable
	default:
		return eventEStop
	}
}

func newModeFSM(onEnter func(from, to Mode)) *fsm.FSM {
	return fsm.NewFSM(
		string(ModeDisabled),
		modeTransitions,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(Mode(e.Src), Mode(e.Dst))
			},
		},
	)
}
