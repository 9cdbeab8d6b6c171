// Package scheduler runs registered subsystems once per control cycle and
// keeps loop timing statistics.
package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/metrics"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

// Stats summarises loop timing since startup.
type Stats struct {
	Cycles       uint64
	Overruns     uint64
	LastDuration time.Duration
	MaxDuration  time.Duration
}

// Heartbeat is emitted by CheckHeartbeat when the interval elapses.
type Heartbeat struct {
	Timestamp time.Time
	Uptime    time.Duration
	Stats     Stats
}

// Scheduler calls Periodic on each subsystem in registration order.
// It is driven by the control loop and is not safe for concurrent use.
type Scheduler struct {
	period     time.Duration
	now        func() time.Time
	logger     *zap.SugaredLogger
	subsystems []subsystem.Periodic

	startTime     time.Time
	lastHeartbeat time.Time
	overrunning   bool
	stats         Stats
}

// New creates a scheduler for the given loop period.
func New(period time.Duration, now func() time.Time, logger *zap.SugaredLogger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	start := now()
	return &Scheduler{
		period:        period,
		now:           now,
		logger:        logger,
		startTime:     start,
		lastHeartbeat: start,
	}
}

// Register appends subsystems to the cycle.
func (s *Scheduler) Register(subsystems ...subsystem.Periodic) {
	s.subsystems = append(s.subsystems, subsystems...)
}

// RunOnce runs one cycle and returns how long it took.
func (s *Scheduler) RunOnce() time.Duration {
	start := s.now()
	for _, sub := range s.subsystems {
		sub.Periodic()
	}
	d := s.now().Sub(start)

	overrun := s.period > 0 && d > s.period
	s.stats.Cycles++
	s.stats.LastDuration = d
	if d > s.stats.MaxDuration {
		s.stats.MaxDuration = d
	}
	if overrun {
		s.stats.Overruns++
		// Only the first cycle of a streak is logged.
		if !s.overrunning {
			s.logger.Warnw("loop overrun", "duration", d, "period", s.period)
		}
	}
	s.overrunning = overrun
	metrics.ObserveLoop(d, overrun)
	return d
}

// Stats returns loop statistics.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// CheckHeartbeat returns heartbeat data if interval has elapsed since the
// last heartbeat (or startup). Returns nil if interval <= 0 (disabled).
func (s *Scheduler) CheckHeartbeat(now time.Time, interval time.Duration) *Heartbeat {
	if interval <= 0 || now.Sub(s.lastHeartbeat) < interval {
		return nil
	}
	s.lastHeartbeat = now
	return &Heartbeat{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Stats:     s.stats,
	}
}
