// Package config loads the daemon configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/subsystem"
)

// Run modes.
const (
	ModeSim      = "sim"
	ModeHardware = "hardware"
)

type Config struct {
	Version      string         `yaml:"version"`
	Mode         string         `yaml:"mode"`
	LoopPeriodMs int            `yaml:"loop_period_ms"`
	Log          LogConfig      `yaml:"log"`
	MQTT         MQTTConfig     `yaml:"mqtt"`
	HTTP         HTTPConfig     `yaml:"http"`
	Feeder       FeederConfig   `yaml:"feeder"`
	Launcher     LauncherConfig `yaml:"launcher"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---- TELEMETRY ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables MQTT telemetry
	ClientID    string `yaml:"client_id"`
	HeartbeatMs int    `yaml:"heartbeat_ms"` // 0 disables heartbeats
	BufferSize  int    `yaml:"buffer_size"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

// ---- HARDWARE ----

type MotorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	PollMs    int    `yaml:"poll_ms"`
}

type SensorConfig struct {
	Chip      string `yaml:"chip"`
	Line      *int   `yaml:"line"` // nil: no sensor fitted
	ActiveLow bool   `yaml:"active_low"`
}

// ---- SUBSYSTEMS ----

// Setpoints are keyed by state name. A state left out runs at the safe setpoint.
type FeederConfig struct {
	Setpoints map[string]float64 `yaml:"setpoints"`
	Motor     MotorConfig        `yaml:"motor"`
	Sensor    SensorConfig       `yaml:"sensor"`
}

type LauncherConfig struct {
	Setpoints map[string]float64 `yaml:"setpoints"`
	Motor     MotorConfig        `yaml:"motor"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Version:      "1.0",
		Mode:         ModeSim,
		LoopPeriodMs: 20,
		Log:          LogConfig{Level: "INFO", Format: "CONSOLE"},
		MQTT: MQTTConfig{
			ClientID:    "robot",
			HeartbeatMs: 60000,
			BufferSize:  500,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Feeder: FeederConfig{
			Motor:  defaultMotor(),
			Sensor: SensorConfig{Chip: "gpiochip0", ActiveLow: true},
		},
		Launcher: LauncherConfig{Motor: defaultMotor()},
	}
	fillSetpoints(cfg)
	return cfg
}

func defaultMotor() MotorConfig {
	return MotorConfig{UnitID: 1, TimeoutMs: 50, PollMs: 20}
}

// fillSetpoints applies default setpoints only to subsystems that have none.
// A file that lists setpoints replaces the defaults for that subsystem.
func fillSetpoints(cfg *Config) {
	if cfg.Feeder.Setpoints == nil {
		cfg.Feeder.Setpoints = make(map[string]float64)
		for s, v := range feeder.DefaultSetpoints() {
			cfg.Feeder.Setpoints[string(s)] = v
		}
	}
	if cfg.Launcher.Setpoints == nil {
		cfg.Launcher.Setpoints = make(map[string]float64)
		for s, v := range launcher.DefaultSetpoints() {
			cfg.Launcher.Setpoints[string(s)] = v
		}
	}
}

// Load reads path on top of the defaults. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Feeder.Setpoints = nil
	cfg.Launcher.Setpoints = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	fillSetpoints(cfg)
	return cfg, nil
}

type envOverrides struct {
	Mode      string `env:"ROBOT_MODE"`
	Broker    string `env:"ROBOT_MQTT_BROKER"`
	HTTPAddr  string `env:"ROBOT_HTTP_ADDR"`
	LogLevel  string `env:"ROBOT_LOG_LEVEL"`
	LogFormat string `env:"ROBOT_LOG_FORMAT"`
}

// ApplyEnv overrides selected fields from ROBOT_* environment variables.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Mode != "" {
		cfg.Mode = o.Mode
	}
	if o.Broker != "" {
		cfg.MQTT.Broker = o.Broker
	}
	if o.HTTPAddr != "" {
		cfg.HTTP.Addr = o.HTTPAddr
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	return nil
}

// LoopPeriod returns the control loop period.
func (c *Config) LoopPeriod() time.Duration {
	return time.Duration(c.LoopPeriodMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval (0 = disabled).
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}

// FeederSetpoints converts the validated feeder setpoints.
func (c *Config) FeederSetpoints() subsystem.Setpoints[feeder.State, float64] {
	out := make(subsystem.Setpoints[feeder.State, float64], len(c.Feeder.Setpoints))
	for name, v := range c.Feeder.Setpoints {
		out[feeder.State(name)] = v
	}
	return out
}

// LauncherSetpoints converts the validated launcher setpoints.
func (c *Config) LauncherSetpoints() subsystem.Setpoints[launcher.State, float64] {
	out := make(subsystem.Setpoints[launcher.State, float64], len(c.Launcher.Setpoints))
	for name, v := range c.Launcher.Setpoints {
		out[launcher.State(name)] = v
	}
	return out
}

// Timeout returns the Modbus request timeout.
func (m MotorConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// PollInterval returns the controller poll interval.
func (m MotorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollMs) * time.Millisecond
}
