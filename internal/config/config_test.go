package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LoopPeriod() != 20*time.Millisecond {
		t.Errorf("LoopPeriod = %v", cfg.LoopPeriod())
	}
	sp := cfg.LauncherSetpoints()
	if v, ok := sp.Lookup(launcher.StateLaunch); !ok || v != 100.0 {
		t.Errorf("LAUNCH = %v, %v; want 100", v, ok)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	data := `
version: "1.2"
mode: hardware
loop_period_ms: 10
mqtt:
  broker: tcp://broker:1883
feeder:
  setpoints:
    STOP: 0
  motor:
    endpoint: 10.0.0.2:502
  sensor:
    line: 17
launcher:
  motor:
    endpoint: 10.0.0.3:502
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Mode != ModeHardware || cfg.LoopPeriodMs != 10 {
		t.Errorf("mode=%q period=%d", cfg.Mode, cfg.LoopPeriodMs)
	}
	// Unset fields keep their defaults.
	if cfg.MQTT.ClientID != "robot" || cfg.HTTP.Addr != ":8080" {
		t.Errorf("defaults lost: client_id=%q addr=%q", cfg.MQTT.ClientID, cfg.HTTP.Addr)
	}
	if cfg.Feeder.Motor.PollInterval() != 20*time.Millisecond {
		t.Errorf("poll = %v", cfg.Feeder.Motor.PollInterval())
	}
	if cfg.Feeder.Sensor.Line == nil || *cfg.Feeder.Sensor.Line != 17 {
		t.Errorf("sensor line = %v", cfg.Feeder.Sensor.Line)
	}

	// Listed setpoints replace the defaults, so INWARD is unmapped.
	sp := cfg.FeederSetpoints()
	if _, ok := sp.Lookup(feeder.StateInward); ok {
		t.Error("INWARD should be unmapped")
	}
	// Unlisted subsystem keeps its defaults.
	if v, _ := cfg.LauncherSetpoints().Lookup(launcher.StateLaunch); v != 100.0 {
		t.Errorf("LAUNCH = %v", v)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("mode: [sim")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ROBOT_MODE", "hardware")
	t.Setenv("ROBOT_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("ROBOT_LOG_LEVEL", "DEBUG")

	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeHardware {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("unset override changed Addr to %q", cfg.HTTP.Addr)
	}
}

func TestValidateErrors(t *testing.T) {
	hw := func(c *Config) {
		c.Mode = ModeHardware
		c.Feeder.Motor.Endpoint = "a:502"
		c.Launcher.Motor.Endpoint = "b:502"
	}
	line := -1

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad version", func(c *Config) { c.Version = "one" }, "version"},
		{"future version", func(c *Config) { c.Version = "2.0" }, "not supported"},
		{"bad mode", func(c *Config) { c.Mode = "fast" }, "mode"},
		{"zero period", func(c *Config) { c.LoopPeriodMs = 0 }, "loop_period_ms"},
		{"negative heartbeat", func(c *Config) { c.MQTT.HeartbeatMs = -1 }, "heartbeat_ms"},
		{"broker without id", func(c *Config) { c.MQTT.Broker = "tcp://x:1883"; c.MQTT.ClientID = "" }, "client_id"},
		{"unknown feeder state", func(c *Config) { c.Feeder.Setpoints["OUTWARD"] = -0.5 }, "unknown feeder state"},
		{"feeder out of range", func(c *Config) { c.Feeder.Setpoints["INWARD"] = 1.5 }, "outside"},
		{"unknown launcher state", func(c *Config) { c.Launcher.Setpoints["LOB"] = 20 }, "unknown launcher state"},
		{"launcher too fast", func(c *Config) { c.Launcher.Setpoints["LAUNCH"] = 5000 }, "exceeds controller limit"},
		{"launcher too fast reversed", func(c *Config) { c.Launcher.Setpoints["LAUNCH"] = -3300 }, "exceeds controller limit"},
		{"missing endpoint", func(c *Config) { hw(c); c.Launcher.Motor.Endpoint = "" }, "launcher.motor.endpoint"},
		{"zero poll", func(c *Config) { hw(c); c.Feeder.Motor.PollMs = 0 }, "poll_ms"},
		{"shared motor", func(c *Config) { hw(c); c.Launcher.Motor.Endpoint = "a:502" }, "both address"},
		{"negative line", func(c *Config) { hw(c); c.Feeder.Sensor.Line = &line }, "sensor.line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLauncherAtControllerLimit(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1.0\"\nlauncher:\n  setpoints:\n    STOP: 0\n    LAUNCH: 3276.7\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("setpoint at the limit should be accepted: %v", err)
	}
}

func TestSimModeIgnoresHardware(t *testing.T) {
	cfg := Default()
	cfg.Feeder.Motor.Endpoint = ""
	cfg.Feeder.Motor.PollMs = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("sim mode should not check motors: %v", err)
	}
}
