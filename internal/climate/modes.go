// internal/climate/modes.go
package climate

// ModeMap is a fixed, ordered association between mode names and the raw
// values a device uses for them. Lookups in both directions take the first
// match in declaration order.
type ModeMap struct {
	names  []string
	values []int64
}

// Mode is one ModeMap entry.
type Mode struct {
	Name  string
	Value int64
}

func NewModeMap(modes ...Mode) ModeMap {
	m := ModeMap{
		names:  make([]string, 0, len(modes)),
		values: make([]int64, 0, len(modes)),
	}
	for _, md := range modes {
		m.names = append(m.names, md.Name)
		m.values = append(m.values, md.Value)
	}
	return m
}

// Value returns the raw value for a mode name.
func (m ModeMap) Value(name string) (int64, bool) {
	for i, n := range m.names {
		if n == name {
			return m.values[i], true
		}
	}
	return 0, false
}

// Name returns the first mode whose raw value equals v.
func (m ModeMap) Name(v float64) (string, bool) {
	for i, val := range m.values {
		if float64(val) == v {
			return m.names[i], true
		}
	}
	return "", false
}

func (m ModeMap) Has(name string) bool {
	_, ok := m.Value(name)
	return ok
}

// Names lists mode names in declaration order.
func (m ModeMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m ModeMap) Len() int { return len(m.names) }

// HVACMode is the semantic operating mode.
type HVACMode string

const (
	HVACModeOff      HVACMode = "off"
	HVACModeHeat     HVACMode = "heat"
	HVACModeCool     HVACMode = "cool"
	HVACModeHeatCool HVACMode = "heat_cool"
	HVACModeAuto     HVACMode = "auto"
	HVACModeDry      HVACMode = "dry"
	HVACModeFanOnly  HVACMode = "fan_only"
)

// HVACAction is what the device is doing in a given mode.
type HVACAction string

const (
	HVACActionOff     HVACAction = "off"
	HVACActionHeating HVACAction = "heating"
	HVACActionCooling HVACAction = "cooling"
	HVACActionIdle    HVACAction = "idle"
	HVACActionDrying  HVACAction = "drying"
	HVACActionFan     HVACAction = "fan"
)

var hvacActions = map[HVACMode]HVACAction{
	HVACModeOff:      HVACActionOff,
	HVACModeHeat:     HVACActionHeating,
	HVACModeCool:     HVACActionCooling,
	HVACModeHeatCool: HVACActionIdle,
	HVACModeAuto:     HVACActionIdle,
	HVACModeDry:      HVACActionDrying,
	HVACModeFanOnly:  HVACActionFan,
}

// bestModes is the substitution order for unsupported HVAC modes.
var bestModes = []HVACMode{HVACModeHeatCool, HVACModeCool, HVACModeHeat}

// Feature is a capability bit derived from the configured fields.
type Feature uint32

const (
	FeatureTargetTemperature Feature = 1 << iota
	FeatureTargetHumidity
	FeatureFanMode
	FeaturePresetMode
	FeatureSwingMode
	FeatureAuxHeat
)
