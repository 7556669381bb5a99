// internal/register/types.go
package register

import "fmt"

// Field is a semantic thermostat field backed by a register.
type Field string

const (
	FieldAuxHeat           Field = "aux_heat"
	FieldFanMode           Field = "fan_mode"
	FieldHumidity          Field = "humidity"
	FieldHVACMode          Field = "hvac_mode"
	FieldHVACOff           Field = "hvac_off"
	FieldPresetMode        Field = "preset_mode"
	FieldSwingMode         Field = "swing_mode"
	FieldTargetHumidity    Field = "target_humidity"
	FieldTargetTemperature Field = "target_temperature"
	FieldTemperature       Field = "temperature"
)

// Fields lists every supported field in read order.
var Fields = []Field{
	FieldAuxHeat,
	FieldFanMode,
	FieldHumidity,
	FieldHVACMode,
	FieldHVACOff,
	FieldPresetMode,
	FieldSwingMode,
	FieldTargetHumidity,
	FieldTargetTemperature,
	FieldTemperature,
}

// RegisterType selects the Modbus table a field lives in.
type RegisterType uint8

const (
	RegisterTypeHolding RegisterType = iota // default
	RegisterTypeInput
	RegisterTypeCoil
)

// ParseRegisterType maps a config string to a RegisterType.
// Empty means holding.
func ParseRegisterType(s string) (RegisterType, error) {
	switch s {
	case "", "holding":
		return RegisterTypeHolding, nil
	case "input":
		return RegisterTypeInput, nil
	case "coil":
		return RegisterTypeCoil, nil
	default:
		return 0, fmt.Errorf("unknown register type %q", s)
	}
}

func (t RegisterType) String() string {
	switch t {
	case RegisterTypeInput:
		return "input"
	case RegisterTypeCoil:
		return "coil"
	default:
		return "holding"
	}
}

// DataType is the numeric interpretation of a field's words.
type DataType string

const (
	DataTypeInt    DataType = "int" // default
	DataTypeUint   DataType = "uint"
	DataTypeFloat  DataType = "float"
	DataTypeCustom DataType = "custom"
)

// Slot addresses one device on a shared register map.
// A single slot uses each field's explicit register; a multiplexed slot
// picks its entry out of each field's register list.
type Slot struct {
	index       int
	multiplexed bool
}

func SingleSlot() Slot { return Slot{} }

func MultiplexedSlot(index int) Slot {
	return Slot{index: index, multiplexed: true}
}

func (s Slot) Multiplexed() bool { return s.multiplexed }

// Index is the position in register lists. Zero for single slots.
func (s Slot) Index() int { return s.index }

func (s Slot) String() string {
	if !s.multiplexed {
		return "single"
	}
	return fmt.Sprintf("#%d", s.index)
}
