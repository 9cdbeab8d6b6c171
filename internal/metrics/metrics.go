// Package metrics exposes Prometheus collectors for the control loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "robot"

	loopDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "duration_seconds",
			Help:      "Time spent running every subsystem's periodic update in one cycle",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1},
		},
	)

	loopOverruns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "overruns_total",
			Help:      "Number of cycles that took longer than the loop period",
		},
	)

	setpointWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subsystem",
			Name:      "setpoint_writes_total",
			Help:      "Number of setpoints written to the IO layer",
		},
		[]string{"subsystem"},
	)

	setpoint = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subsystem",
			Name:      "setpoint",
			Help:      "Last setpoint written to the IO layer",
		},
		[]string{"subsystem"},
	)

	motorConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subsystem",
			Name:      "motor_connected",
			Help:      "Motor controller connectivity (1=connected, 0=disconnected)",
		},
		[]string{"subsystem"},
	)

	alertActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "active",
			Help:      "Operator alert state (1=active, 0=inactive)",
		},
		[]string{"alert", "level"},
	)

	robotMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "Current robot mode (1 for the active mode, 0 otherwise)",
		},
		[]string{"mode"},
	)
)

// ObserveLoop records one control cycle.
func ObserveLoop(d time.Duration, overrun bool) {
	loopDuration.Observe(d.Seconds())
	if overrun {
		loopOverruns.Inc()
	}
}

// RecordSetpoint records a setpoint write for subsystem.
func RecordSetpoint(subsystem string, value float64) {
	setpointWrites.WithLabelValues(subsystem).Inc()
	setpoint.WithLabelValues(subsystem).Set(value)
}

// SetConnected records motor connectivity for subsystem.
func SetConnected(subsystem string, connected bool) {
	motorConnected.WithLabelValues(subsystem).Set(boolToFloat(connected))
}

// SetAlert records an alert edge.
func SetAlert(text, level string, active bool) {
	alertActive.WithLabelValues(text, level).Set(boolToFloat(active))
}

// SetMode marks current as the active mode among all.
func SetMode(current string, all []string) {
	for _, m := range all {
		robotMode.WithLabelValues(m).Set(boolToFloat(m == current))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
