package subsystem

// SafeSetpoint is written for states that have no configured setpoint.
const SafeSetpoint = 0.0

// Setpoints maps each state of a subsystem to its hardware setpoint.
type Setpoints[S comparable, V any] map[S]V

// Lookup returns the setpoint configured for state.
// ok is false when the state has no entry; callers decide the fallback.
func (m Setpoints[S, V]) Lookup(state S) (V, bool) {
	v, ok := m[state]
	return v, ok
}

// Missing returns the states (in argument order) that have no entry.
func (m Setpoints[S, V]) Missing(states ...S) []S {
	var out []S
	for _, s := range states {
		if _, ok := m[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
