// internal/register/spec.go
package register

import (
	"github.com/pkg/errors"
)

// FieldConfig is the raw per-field configuration the engine is built from.
type FieldConfig struct {
	Field        Field
	RegisterType RegisterType
	Slave        uint8
	Register     *uint16  // single device
	Registers    []uint16 // one per multiplexed device
	Count        uint16   // words; 0 => 1
	DataType     DataType // "" => int
	Structure    string   // custom only
	ReverseOrder bool
	Scale        float64 // 0 => 1
	Offset       float64
}

// Spec is the canonical, validated form of a field's register.
type Spec struct {
	Field        Field
	Type         RegisterType
	Slave        uint8
	Register     *uint16
	Registers    []uint16
	Count        uint16
	DataType     DataType
	Layout       Layout
	ReverseOrder bool
	Scale        float64
	Offset       float64
}

// synthesized big-endian codes keyed by data type and word count
var layoutCodes = map[DataType]map[uint16]byte{
	DataTypeInt:   {1: 'h', 2: 'i', 4: 'q'},
	DataTypeUint:  {1: 'H', 2: 'I', 4: 'Q'},
	DataTypeFloat: {1: 'e', 2: 'f', 4: 'd'},
}

// NewSpec resolves defaults and the decode layout for one field.
// The layout byte size must equal Count*2.
func NewSpec(c FieldConfig) (*Spec, error) {
	count := c.Count
	if count == 0 {
		count = 1
	}
	dt := c.DataType
	if dt == "" {
		dt = DataTypeInt
	}

	format := c.Structure
	if dt != DataTypeCustom {
		codes, ok := layoutCodes[dt]
		if !ok {
			return nil, errors.Errorf("unable to detect data type %q", dt)
		}
		code, ok := codes[count]
		if !ok {
			return nil, errors.Errorf("unable to detect data type %s for %d registers", dt, count)
		}
		format = ">" + string(code)
	}

	layout, err := ParseLayout(format)
	if err != nil {
		return nil, errors.Wrap(err, "error in structure")
	}

	if layout.Size() != int(count)*2 {
		return nil, errors.Errorf(
			"structure size (%d bytes) mismatch registers count (%d words)",
			layout.Size(),
			count,
		)
	}

	scale := c.Scale
	if scale == 0 {
		scale = 1
	}

	return &Spec{
		Field:        c.Field,
		Type:         c.RegisterType,
		Slave:        c.Slave,
		Register:     c.Register,
		Registers:    c.Registers,
		Count:        count,
		DataType:     dt,
		Layout:       layout,
		ReverseOrder: c.ReverseOrder,
		Scale:        scale,
		Offset:       c.Offset,
	}, nil
}

// Address resolves the register a slot reads and writes.
func (s *Spec) Address(slot Slot) (uint16, error) {
	if slot.Multiplexed() {
		if slot.Index() < 0 || slot.Index() >= len(s.Registers) {
			return 0, errors.Errorf("%s: no register for device %s", s.Field, slot)
		}
		return s.Registers[slot.Index()], nil
	}
	if s.Register == nil {
		return 0, errors.Errorf("%s: no register", s.Field)
	}
	return *s.Register, nil
}
