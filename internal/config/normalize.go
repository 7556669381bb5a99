// internal/config/normalize.go
package config

const (
	DefaultName       = "ModBus"
	DefaultTimeoutMs  = 3000
	DefaultIntervalMs = 10000
	DefaultPrefix     = "climate"
	DefaultClientID   = "modbus-climate"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.MQTT.Prefix == "" {
		cfg.MQTT.Prefix = DefaultPrefix
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}

	for ci := range cfg.Climates {
		c := &cfg.Climates[ci]

		if len(c.Name.Values) == 0 {
			c.Name = Names{Values: []string{DefaultName}, Single: true}
		}
		if c.Transport.TimeoutMs == 0 {
			c.Transport.TimeoutMs = DefaultTimeoutMs
		}
		if c.Poll.IntervalMs == 0 {
			c.Poll.IntervalMs = DefaultIntervalMs
		}

		c.HVACOffValue = orDefault(c.HVACOffValue, 0)
		c.HVACOnValue = orDefault(c.HVACOnValue, 1)
		c.AuxHeatOffValue = orDefault(c.AuxHeatOffValue, 0)
		c.AuxHeatOnValue = orDefault(c.AuxHeatOnValue, 1)

		for field, r := range c.Registers {
			if r.RegisterType == "" {
				r.RegisterType = "holding"
			}
			if r.Slave == nil {
				one := uint8(1)
				r.Slave = &one
			}
			if r.Count == 0 {
				r.Count = 1
			}
			if r.Scale == nil {
				one := 1.0
				r.Scale = &one
			}
			c.Registers[field] = r
		}
	}
}

func orDefault(v *int64, def int64) *int64 {
	if v != nil {
		return v
	}
	return &def
}
