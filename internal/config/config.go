// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LogConfig       `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Climates []ClimateConfig `yaml:"climates"`
}

// ---- AMBIENT ----

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty => metrics endpoint disabled
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty => bridge disabled
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// ---- CLIMATE ----

// ClimateConfig is one Modbus connection carrying one or more climate devices.
type ClimateConfig struct {
	ID        string          `yaml:"id"`
	Name      Names           `yaml:"name"`
	Transport TransportConfig `yaml:"transport"`
	Poll      PollConfig      `yaml:"poll"`

	HVACModes   ModeMap `yaml:"hvac_modes"`
	FanModes    ModeMap `yaml:"fan_modes"`
	SwingModes  ModeMap `yaml:"swing_modes"`
	PresetModes ModeMap `yaml:"preset_modes"`

	HVACOffValue    *int64 `yaml:"hvac_off_value"`
	HVACOnValue     *int64 `yaml:"hvac_on_value"`
	AuxHeatOffValue *int64 `yaml:"aux_heat_off_value"`
	AuxHeatOnValue  *int64 `yaml:"aux_heat_on_value"`

	// keyed by semantic field (temperature, hvac_mode, ...)
	Registers map[string]RegisterConfig `yaml:"registers"`
}

type TransportConfig struct {
	Endpoint  string `yaml:"endpoint"` // tcp://, rtu://, rtuovertcp://
	TimeoutMs int    `yaml:"timeout_ms"`

	// serial only (rtu://)
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
}

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- REGISTER ----

type RegisterConfig struct {
	RegisterType string   `yaml:"register_type"` // holding | input | coil
	Slave        *uint8   `yaml:"slave"`
	Register     *uint16  `yaml:"register"`  // single device
	Registers    []uint16 `yaml:"registers"` // one per multiplexed device
	Count        uint16   `yaml:"count"`
	DataType     string   `yaml:"data_type"` // int | uint | float | custom
	Structure    string   `yaml:"structure"` // custom only
	ReverseOrder bool     `yaml:"reverse_order"`
	Scale        *float64 `yaml:"scale"`
	Offset       float64  `yaml:"offset"`
}

// Load reads and decodes a YAML config file.
// It does not validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML bytes into a Config.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
