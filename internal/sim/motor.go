// Package sim provides a first-order motor model for running without hardware.
// It is good enough to exercise the control loop, not to tune it.
package sim

import (
	"math"
	"time"
)

const ambientCelsius = 25.0

// Motor is a simulated motor and controller.
// Not safe for concurrent use; it is stepped from the control loop.
type Motor struct {
	maxRPS       float64
	tau          time.Duration
	stallCurrent float64

	target    float64 // commanded velocity, rps
	output    float64 // commanded duty, [-1, 1]
	velocity  float64
	current   float64
	tempC     float64
	connected bool
}

// State is a snapshot of the simulated motor.
type State struct {
	Connected     bool
	Velocity      float64 // rps
	Output        float64 // applied duty, [-1, 1]
	SupplyCurrent float64 // amps
	Temperature   float64 // celsius
}

// NewMotor creates a connected motor with the given free speed and time constant.
func NewMotor(maxRPS float64, tau time.Duration, stallCurrent float64) *Motor {
	return &Motor{
		maxRPS:       maxRPS,
		tau:          tau,
		stallCurrent: stallCurrent,
		tempC:        ambientCelsius,
		connected:    true,
	}
}

// SetDutyCycle commands an open-loop output in [-1, 1].
func (m *Motor) SetDutyCycle(duty float64) {
	m.output = clamp(duty, -1, 1)
	m.target = m.output * m.maxRPS
}

// SetVelocity commands a closed-loop velocity in rotations per second.
func (m *Motor) SetVelocity(rps float64) {
	m.target = clamp(rps, -m.maxRPS, m.maxRPS)
	if m.maxRPS > 0 {
		m.output = m.target / m.maxRPS
	}
}

// SetConnected simulates the controller dropping off (or rejoining) the bus.
// A disconnected controller drives neutral but keeps the last command.
func (m *Motor) SetConnected(connected bool) {
	m.connected = connected
}

// Step advances the model by dt.
func (m *Motor) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	target, output := m.target, m.output
	if !m.connected {
		target, output = 0, 0
	}

	alpha := 1.0
	if m.tau > 0 {
		alpha = 1 - math.Exp(-dt.Seconds()/m.tau.Seconds())
	}
	m.velocity += (target - m.velocity) * alpha

	// Current is proportional to the gap between applied output and back-EMF.
	backEMF := 0.0
	if m.maxRPS > 0 {
		backEMF = m.velocity / m.maxRPS
	}
	m.current = math.Abs(output-backEMF) * m.stallCurrent

	// Crude thermal model: I²R heating against Newtonian cooling.
	heat := m.current * m.current * 0.0005
	cool := (m.tempC - ambientCelsius) * 0.01
	m.tempC += (heat - cool) * dt.Seconds() * 50
}

// State returns the current simulated readings. A disconnected motor reports
// zeros apart from Connected=false, as a controller that has gone silent would.
func (m *Motor) State() State {
	if !m.connected {
		return State{}
	}
	return State{
		Connected:     true,
		Velocity:      m.velocity,
		Output:        m.output,
		SupplyCurrent: m.current,
		Temperature:   m.tempC,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
