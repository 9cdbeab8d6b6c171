// Package telemetry records subsystem input snapshots.
// Publishing is fire-and-forget: a failing sink never reaches control logic.
package telemetry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/mqtt"
)

// Sink receives one input snapshot per subsystem per control cycle.
// Implementations must not retain references into inputs; callers pass
// snapshots by value.
type Sink interface {
	ProcessInputs(namespace string, inputs any)
}

// Discard drops every snapshot.
type Discard struct{}

// ProcessInputs does nothing.
func (Discard) ProcessInputs(string, any) {}

// PublisherSink forwards snapshots to an MQTT publisher.
type PublisherSink struct {
	pub    mqtt.Publisher
	logger *zap.SugaredLogger

	mu       sync.Mutex
	failures map[string]int
}

// NewPublisherSink wraps pub. Publish errors are logged and counted per namespace.
func NewPublisherSink(pub mqtt.Publisher, logger *zap.SugaredLogger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &PublisherSink{pub: pub, logger: logger, failures: make(map[string]int)}
}

// ProcessInputs publishes inputs under namespace.
func (s *PublisherSink) ProcessInputs(namespace string, inputs any) {
	err := s.pub.PublishInputs(namespace, inputs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		if n := s.failures[namespace]; n > 0 {
			s.logger.Infof("telemetry: %s publishing recovered after %d failures", namespace, n)
			s.failures[namespace] = 0
		}
		return
	}
	// Log the first failure of a streak only; this runs every control cycle.
	if s.failures[namespace] == 0 {
		s.logger.Warnf("telemetry: publish %s: %v", namespace, err)
	}
	s.failures[namespace]++
}

// Failures returns the current consecutive failure count for namespace.
func (s *PublisherSink) Failures(namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[namespace]
}

// Entry is one recorded snapshot.
type Entry struct {
	Namespace string
	Inputs    any
}

// Recorder keeps recent snapshots in memory and the latest one per
// namespace. robotd uses it to print one cycle of inputs.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	latest  map[string]any
	limit   int
}

// NewRecorder creates a Recorder that keeps at most limit entries (0 = unbounded).
func NewRecorder(limit int) *Recorder {
	return &Recorder{latest: make(map[string]any), limit: limit}
}

// ProcessInputs records the snapshot.
func (r *Recorder) ProcessInputs(namespace string, inputs any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Namespace: namespace, Inputs: inputs})
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	r.latest[namespace] = inputs
}

// Entries returns a copy of the recorded snapshots, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Latest returns the most recent snapshot for namespace.
func (r *Recorder) Latest(namespace string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.latest[namespace]
	return v, ok
}

// Multi fans each snapshot out to several sinks in order.
type Multi []Sink

// ProcessInputs forwards to every sink.
func (m Multi) ProcessInputs(namespace string, inputs any) {
	for _, s := range m {
		s.ProcessInputs(namespace, inputs)
	}
}
