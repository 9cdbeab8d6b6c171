package config

import (
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"

	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/motorctl"
)

// SupportedVersions is the range of config schema versions this build reads.
const SupportedVersions = "^1.0"

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	v, err := semver.NewVersion(cfg.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", cfg.Version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("version constraint: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("version %s is not supported (want %s)", v, SupportedVersions)
	}

	if cfg.Mode != ModeSim && cfg.Mode != ModeHardware {
		return fmt.Errorf("mode %q: must be %q or %q", cfg.Mode, ModeSim, ModeHardware)
	}
	if cfg.LoopPeriodMs <= 0 {
		return fmt.Errorf("loop_period_ms must be > 0")
	}
	if cfg.MQTT.HeartbeatMs < 0 {
		return fmt.Errorf("mqtt.heartbeat_ms must be >= 0")
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required when mqtt.broker is set")
	}

	// ------------------------------------------------------------
	// SETPOINTS
	// ------------------------------------------------------------

	for name, out := range cfg.Feeder.Setpoints {
		if _, err := feeder.ParseState(name); err != nil {
			return fmt.Errorf("feeder.setpoints: %w", err)
		}
		if math.IsNaN(out) || out < -1 || out > 1 {
			return fmt.Errorf("feeder.setpoints.%s: %v outside [-1, 1]", name, out)
		}
	}
	for name, rps := range cfg.Launcher.Setpoints {
		if _, err := launcher.ParseState(name); err != nil {
			return fmt.Errorf("launcher.setpoints: %w", err)
		}
		if math.IsNaN(rps) || math.IsInf(rps, 0) {
			return fmt.Errorf("launcher.setpoints.%s: must be finite", name)
		}
		if math.Abs(rps) > motorctl.MaxVelocityRPS {
			return fmt.Errorf("launcher.setpoints.%s: %g rps exceeds controller limit %g", name, rps, motorctl.MaxVelocityRPS)
		}
	}

	// ------------------------------------------------------------
	// HARDWARE (only checked when it will be used)
	// ------------------------------------------------------------

	if cfg.Mode != ModeHardware {
		return nil
	}
	if err := validateMotor("feeder.motor", cfg.Feeder.Motor); err != nil {
		return err
	}
	if err := validateMotor("launcher.motor", cfg.Launcher.Motor); err != nil {
		return err
	}
	if cfg.Feeder.Motor.Endpoint == cfg.Launcher.Motor.Endpoint &&
		cfg.Feeder.Motor.UnitID == cfg.Launcher.Motor.UnitID {
		return fmt.Errorf("feeder.motor and launcher.motor both address %s unit %d",
			cfg.Feeder.Motor.Endpoint, cfg.Feeder.Motor.UnitID)
	}
	if s := cfg.Feeder.Sensor; s.Line != nil {
		if s.Chip == "" {
			return fmt.Errorf("feeder.sensor.chip is required when a line is set")
		}
		if *s.Line < 0 {
			return fmt.Errorf("feeder.sensor.line must be >= 0")
		}
	}
	return nil
}

func validateMotor(field string, m MotorConfig) error {
	if m.Endpoint == "" {
		return fmt.Errorf("%s.endpoint is required in hardware mode", field)
	}
	if m.TimeoutMs <= 0 {
		return fmt.Errorf("%s.timeout_ms must be > 0", field)
	}
	if m.PollMs <= 0 {
		return fmt.Errorf("%s.poll_ms must be > 0", field)
	}
	return nil
}
