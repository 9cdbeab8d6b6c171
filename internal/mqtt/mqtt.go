// Package mqtt publishes robot telemetry over MQTT, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicTelemetry is the prefix for per-subsystem input snapshots.
// Snapshots are published to TopicTelemetry + "/" + namespace.
const TopicTelemetry = "robot/telemetry"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "robot/system"

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishInputs sends one subsystem input snapshot.
	// Returns error if publishing fails (should not stop the control loop).
	PublishInputs(namespace string, inputs any) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// InputsTopic returns the topic an input snapshot for namespace is published to.
func InputsTopic(namespace string) string {
	return TopicTelemetry + "/" + namespace
}

// Payload is the MQTT message payload for an input snapshot.
type Payload struct {
	Telemetry TelemetryPayload `json:"telemetry"`
}

// TelemetryPayload contains the snapshot details.
type TelemetryPayload struct {
	Timestamp string `json:"timestamp"`
	Namespace string `json:"namespace"`
	Inputs    any    `json:"inputs"`
}

// FormatInputsPayload creates the JSON payload for an input snapshot.
func FormatInputsPayload(namespace string, at time.Time, inputs any) ([]byte, error) {
	return json.Marshal(Payload{
		Telemetry: TelemetryPayload{
			Timestamp: at.UTC().Format(time.RFC3339Nano),
			Namespace: namespace,
			Inputs:    inputs,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
