// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// knownFields are the semantic fields a register entry may map to.
var knownFields = map[string]bool{
	"aux_heat":           true,
	"fan_mode":           true,
	"humidity":           true,
	"hvac_mode":          true,
	"hvac_off":           true,
	"preset_mode":        true,
	"swing_mode":         true,
	"target_humidity":    true,
	"target_temperature": true,
	"temperature":        true,
}

var knownSchemes = []string{"tcp://", "rtu://", "rtuovertcp://"}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Data type and structure errors are left to the register engine,
// which drops the field and keeps the rest.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if len(cfg.Climates) == 0 {
		return fmt.Errorf("at least one climate must be defined")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Log.Level)
	}

	ids := make(map[string]bool)

	for _, c := range cfg.Climates {
		if c.ID == "" {
			return fmt.Errorf("climate id is required")
		}
		if ids[c.ID] {
			return fmt.Errorf("climate %q: duplicate id", c.ID)
		}
		ids[c.ID] = true

		if err := validateTransport(c.ID, c.Transport); err != nil {
			return err
		}

		if c.Poll.IntervalMs < 0 {
			return fmt.Errorf("climate %q: poll.interval_ms must be >= 0", c.ID)
		}

		for _, n := range c.Name.Values {
			if n == "" {
				return fmt.Errorf("climate %q: device names must not be empty", c.ID)
			}
		}

		for label, modes := range map[string]ModeMap{
			"hvac_modes":   c.HVACModes,
			"fan_modes":    c.FanModes,
			"swing_modes":  c.SwingModes,
			"preset_modes": c.PresetModes,
		} {
			seen := make(map[string]bool)
			for _, m := range modes {
				if m.Name == "" {
					return fmt.Errorf("climate %q: %s: empty mode name", c.ID, label)
				}
				if seen[m.Name] {
					return fmt.Errorf("climate %q: %s: mode %q declared twice", c.ID, label, m.Name)
				}
				seen[m.Name] = true
			}
		}

		if len(c.Registers) == 0 {
			return fmt.Errorf("climate %q: no registers defined", c.ID)
		}

		for field, r := range c.Registers {
			if !knownFields[field] {
				return fmt.Errorf("climate %q: unknown register field %q", c.ID, field)
			}

			switch r.RegisterType {
			case "", "holding", "input", "coil":
			default:
				return fmt.Errorf(
					"climate %q: %s: register_type %q must be holding, input or coil",
					c.ID,
					field,
					r.RegisterType,
				)
			}

			if r.Scale != nil && *r.Scale == 0 {
				return fmt.Errorf("climate %q: %s: scale must not be 0", c.ID, field)
			}
		}
	}

	return nil
}

func validateTransport(id string, t TransportConfig) error {
	if t.Endpoint == "" {
		return fmt.Errorf("climate %q: transport.endpoint is required", id)
	}

	ok := false
	for _, s := range knownSchemes {
		if strings.HasPrefix(t.Endpoint, s) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf(
			"climate %q: transport.endpoint %q must start with one of %s",
			id,
			t.Endpoint,
			strings.Join(knownSchemes, ", "),
		)
	}

	if t.TimeoutMs < 0 {
		return fmt.Errorf("climate %q: transport.timeout_ms must be >= 0", id)
	}

	return nil
}
