package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Session       string          `json:"session"`
	Mode          string          `json:"mode"`
	Subsystems    []SubsystemJSON `json:"subsystems"`
	Alerts        []AlertJSON     `json:"alerts"`
	Loop          LoopJSON        `json:"loop"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// SubsystemJSON is one subsystem's state and latest inputs.
type SubsystemJSON struct {
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Setpoint  float64 `json:"setpoint"`
	Connected bool    `json:"connected"`
	Inputs    any     `json:"inputs,omitempty"`
}

type AlertJSON struct {
	Text        string `json:"text"`
	Level       string `json:"level"`
	ActiveSince string `json:"active_since"`
}

type LoopJSON struct {
	Cycles   uint64  `json:"cycles"`
	Overruns uint64  `json:"overruns"`
	LastMs   float64 `json:"last_ms"`
	MaxMs    float64 `json:"max_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Version      string `json:"version"`
	RunMode      string `json:"run_mode"`
	LoopPeriodMs int64  `json:"loop_period_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func buildInner(snap Snapshot) StatusInner {
	mode := snap.Mode
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Session:       snap.SessionID,
		Mode:          mode,
		Subsystems:    make([]SubsystemJSON, 0, len(snap.Subsystems)),
		Alerts:        make([]AlertJSON, 0, len(snap.Alerts)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Loop: LoopJSON{
			Cycles:   snap.Loop.Cycles,
			Overruns: snap.Loop.Overruns,
			LastMs:   millis(snap.Loop.LastDuration),
			MaxMs:    millis(snap.Loop.MaxDuration),
		},
		Config: ConfigJSON{
			Version:      snap.Config.Version,
			RunMode:      snap.Config.RunMode,
			LoopPeriodMs: snap.Config.LoopPeriodMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
	for _, s := range snap.Subsystems {
		inner.Subsystems = append(inner.Subsystems, SubsystemJSON{
			Name:      s.Name,
			State:     s.State,
			Setpoint:  s.Setpoint,
			Connected: s.Connected,
			Inputs:    s.Inputs,
		})
	}
	for _, a := range snap.Alerts {
		inner.Alerts = append(inner.Alerts, AlertJSON{
			Text:        a.Text,
			Level:       a.Level.String(),
			ActiveSince: a.ActiveSince.UTC().Format(time.RFC3339),
		})
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
