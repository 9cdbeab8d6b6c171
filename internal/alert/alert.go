// Package alert provides named, leveled operator alerts.
// Alerts are level-triggered: owners call Set every cycle and the alert
// follows the condition, raising and clearing with it.
package alert

import (
	"sort"
	"sync"
	"time"
)

// Level is the severity of an alert.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Alert is a single operator-facing flag.
type Alert struct {
	group       *Group
	text        string
	level       Level
	active      bool
	activeSince time.Time
}

// Status is a snapshot of an active alert.
type Status struct {
	Text        string
	Level       Level
	ActiveSince time.Time
}

// Group owns a set of alerts and serves them to readers on other goroutines.
type Group struct {
	mu     sync.RWMutex
	alerts []*Alert
	now    func() time.Time

	// OnChange, if set, is called (outside the lock) whenever an alert
	// becomes active or inactive.
	OnChange func(a Status, active bool)
}

// NewGroup creates an empty alert group.
func NewGroup() *Group {
	return &Group{now: time.Now}
}

// NewGroupWithClock creates a group that stamps activations with now.
func NewGroupWithClock(now func() time.Time) *Group {
	return &Group{now: now}
}

// New registers an inactive alert in the group.
func (g *Group) New(text string, level Level) *Alert {
	a := &Alert{group: g, text: text, level: level}
	g.mu.Lock()
	g.alerts = append(g.alerts, a)
	g.mu.Unlock()
	return a
}

// Set activates or clears the alert. Repeated calls with the same value are no-ops.
func (a *Alert) Set(active bool) {
	g := a.group
	g.mu.Lock()
	if a.active == active {
		g.mu.Unlock()
		return
	}
	a.active = active
	if active {
		a.activeSince = g.now()
	} else {
		a.activeSince = time.Time{}
	}
	st := Status{Text: a.text, Level: a.level, ActiveSince: a.activeSince}
	cb := g.OnChange
	g.mu.Unlock()

	if cb != nil {
		cb(st, active)
	}
}

// Active reports whether the alert is currently raised.
func (a *Alert) Active() bool {
	a.group.mu.RLock()
	defer a.group.mu.RUnlock()
	return a.active
}

// Text returns the alert message.
func (a *Alert) Text() string {
	return a.text
}

// Level returns the alert severity.
func (a *Alert) Level() Level {
	return a.level
}

// Active returns all raised alerts, most severe first, then by text.
func (g *Group) Active() []Status {
	g.mu.RLock()
	var out []Status
	for _, a := range g.alerts {
		if a.active {
			out = append(out, Status{Text: a.text, Level: a.level, ActiveSince: a.activeSince})
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Text < out[j].Text
	})
	return out
}
