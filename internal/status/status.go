// Package status provides a thread-safe status tracker for the robot daemon.
// It is written by the control loop and read by HTTP handlers and MQTT
// system events.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/robot-subsystems/internal/alert"
	"github.com/sweeney/robot-subsystems/internal/scheduler"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Version      string
	RunMode      string // sim or hardware
	LoopPeriodMs int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	SessionID     string
	Mode          string
	Subsystems    []subsystem.Status
	Alerts        []alert.Status
	Loop          scheduler.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	alerts *alert.Group
}

// NewTracker creates a Tracker with a fresh session ID. Alerts are read
// from the group at snapshot time; it may be nil.
func NewTracker(startTime time.Time, cfg Config, alerts *alert.Group) *Tracker {
	return &Tracker{
		snap: Snapshot{
			SessionID: uuid.NewString(),
			StartTime: startTime,
			Config:    cfg,
		},
		alerts: alerts,
	}
}

// Update records the robot mode, subsystem statuses and loop statistics.
// Called from the control loop after every cycle.
func (t *Tracker) Update(mode string, subsystems []subsystem.Status, loop scheduler.Stats) {
	subs := make([]subsystem.Status, len(subsystems))
	copy(subs, subsystems)

	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Subsystems = subs
	t.snap.Loop = loop
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if t.alerts != nil {
		s.Alerts = t.alerts.Active()
	}
	s.Now = time.Now()
	return s
}
