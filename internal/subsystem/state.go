// Package subsystem holds the discrete-state controller shared by every actuator.
// This package has NO hardware dependencies; concrete subsystems own their IO.
package subsystem

// StateSubsystem stores the desired state of one actuator.
// It never touches hardware: owners act on accepted transitions.
// Not safe for concurrent use; all calls come from the control loop.
type StateSubsystem[S comparable] struct {
	name  string
	state S
}

// NewStateSubsystem creates a StateSubsystem with the given name and initial state.
func NewStateSubsystem[S comparable](name string, initial S) *StateSubsystem[S] {
	return &StateSubsystem[S]{name: name, state: initial}
}

// Name returns the subsystem name used for telemetry and alerts.
func (s *StateSubsystem[S]) Name() string {
	return s.name
}

// State returns the current desired state.
func (s *StateSubsystem[S]) State() S {
	return s.state
}

// SetDesiredState records next as the desired state.
// Returns false when next equals the stored state, in which case nothing changes.
func (s *StateSubsystem[S]) SetDesiredState(next S) bool {
	if next == s.state {
		return false
	}
	s.state = next
	return true
}
