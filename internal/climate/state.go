// internal/climate/state.go
package climate

import "github.com/tamzrod/modbus-climate/internal/register"

// State is a point-in-time view of a device for publishers.
// Optional values are nil until first read.
type State struct {
	Name               string     `json:"name"`
	CurrentTemperature *float64   `json:"current_temperature,omitempty"`
	TargetTemperature  *float64   `json:"target_temperature,omitempty"`
	CurrentHumidity    *float64   `json:"current_humidity,omitempty"`
	TargetHumidity     *float64   `json:"target_humidity,omitempty"`
	HVACMode           HVACMode   `json:"hvac_mode"`
	HVACAction         HVACAction `json:"hvac_action"`
	FanMode            string     `json:"fan_mode,omitempty"`
	SwingMode          string     `json:"swing_mode,omitempty"`
	PresetMode         string     `json:"preset_mode,omitempty"`
	AuxHeat            *bool      `json:"aux_heat,omitempty"`

	// capabilities
	SupportedFeatures     Feature  `json:"supported_features"`
	HVACModes             []string `json:"hvac_modes"`
	FanModes              []string `json:"fan_modes,omitempty"`
	SwingModes            []string `json:"swing_modes,omitempty"`
	PresetModes           []string `json:"preset_modes,omitempty"`
	TargetTemperatureStep float64  `json:"target_temperature_step"`
}

// State snapshots every accessor.
func (d *Device) State() State {
	s := State{
		Name:       d.name,
		HVACMode:   d.HVACMode(),
		HVACAction: d.HVACAction(),

		SupportedFeatures:     d.Features(),
		HVACModes:             d.HVACModes(),
		FanModes:              d.FanModes(),
		SwingModes:            d.SwingModes(),
		PresetModes:           d.PresetModes(),
		TargetTemperatureStep: d.TargetTemperatureStep(),
	}

	s.CurrentTemperature = optional(d.CurrentTemperature())
	s.TargetTemperature = optional(d.TargetTemperature())
	s.CurrentHumidity = optional(d.CurrentHumidity())
	s.TargetHumidity = optional(d.TargetHumidity())

	if d.engine.Has(register.FieldFanMode) {
		s.FanMode, _ = d.FanMode()
	}
	if d.engine.Has(register.FieldSwingMode) {
		s.SwingMode, _ = d.SwingMode()
	}
	if d.engine.Has(register.FieldPresetMode) {
		s.PresetMode, _ = d.PresetMode()
	}
	if d.engine.Has(register.FieldAuxHeat) {
		on := d.AuxHeat()
		s.AuxHeat = &on
	}

	return s
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
