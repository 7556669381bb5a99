// internal/register/engine_test.go
package register

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewEngine_DropsBadFields(t *testing.T) {
	e := NewEngine(Config{
		ID: "c1",
		Fields: []FieldConfig{
			{Field: FieldTemperature, Register: u16(1)},
			{Field: FieldHumidity, Register: u16(2), DataType: DataTypeUint, Count: 3},
			{Field: FieldHVACMode, Register: u16(3), DataType: DataTypeCustom, Structure: ">i"},
		},
	}, newFakeClient(), nil, nil)

	if !e.Has(FieldTemperature) {
		t.Fatalf("temperature should be active")
	}
	if e.Has(FieldHumidity) || e.Has(FieldHVACMode) {
		t.Fatalf("bad fields should be dropped, got %v", e.Fields())
	}
}

func TestNewEngine_CanonicalOrder(t *testing.T) {
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Register: u16(1)},
			{Field: FieldAuxHeat, Register: u16(2)},
			{Field: FieldHVACMode, Register: u16(3)},
		},
	}, newFakeClient(), nil, nil)

	got := e.Fields()
	want := []Field{FieldAuxHeat, FieldHVACMode, FieldTemperature}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestReadWrite_ScaleScenario(t *testing.T) {
	c := newFakeClient()
	c.holding[key(1, 10)] = 200

	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTargetTemperature, Slave: 1, Register: u16(10), Scale: 0.5},
		},
	}, c, nil, nil)

	v, err := e.ReadValue(SingleSlot(), FieldTargetTemperature)
	if err != nil {
		t.Fatalf("ReadValue err=%v", err)
	}
	if v != 100.0 {
		t.Fatalf("got=%v want=100", v)
	}

	if err := e.WriteValue(SingleSlot(), FieldTargetTemperature, 80.0); err != nil {
		t.Fatalf("WriteValue err=%v", err)
	}
	if got := c.holding[key(1, 10)]; got != 160 {
		t.Fatalf("raw written=%d want=160", got)
	}
	if c.singleWrites != 1 || c.multiWrites != 0 {
		t.Fatalf("expected one single-register write, got single=%d multi=%d", c.singleWrites, c.multiWrites)
	}
}

func TestReadWrite_RoundTrip(t *testing.T) {
	cases := []FieldConfig{
		{Register: u16(0), Scale: 0.5, Offset: -10},
		{Register: u16(0), DataType: DataTypeInt, Count: 2, Scale: 0.25},
		{Register: u16(0), DataType: DataTypeUint, Count: 4, Offset: 3},
		{Register: u16(0), DataType: DataTypeFloat, Count: 2, ReverseOrder: true},
		{Register: u16(0), DataType: DataTypeInt, Count: 2, ReverseOrder: true, Scale: 2},
		{Register: u16(0), RegisterType: RegisterTypeInput}, // writes land in holding memory
	}

	for i, fc := range cases {
		c := newFakeClient()
		fc.Field = FieldTargetTemperature
		fc.Slave = 1
		e := NewEngine(Config{Fields: []FieldConfig{fc}}, c, nil, nil)

		if fc.RegisterType == RegisterTypeInput {
			if err := e.WriteValue(SingleSlot(), FieldTargetTemperature, 42); err != nil {
				t.Fatalf("case %d: WriteValue err=%v", i, err)
			}
			if c.holding[key(1, 0)] != 42 {
				t.Fatalf("case %d: holding not written", i)
			}
			continue
		}

		for _, v := range []float64{-6, 0, 22, 1234} {
			if fc.DataType == DataTypeUint && v < fc.Offset {
				continue
			}
			if err := e.WriteValue(SingleSlot(), FieldTargetTemperature, v); err != nil {
				t.Fatalf("case %d v=%v: WriteValue err=%v", i, v, err)
			}
			got, err := e.ReadValue(SingleSlot(), FieldTargetTemperature)
			if err != nil {
				t.Fatalf("case %d v=%v: ReadValue err=%v", i, v, err)
			}
			if math.Abs(got-v) > 1e-6 {
				t.Fatalf("case %d: wrote %v read %v", i, v, got)
			}
		}
	}
}

func TestRead_ReverseOrder(t *testing.T) {
	c := newFakeClient()
	c.input[key(2, 5)] = 0x0001 // low word first on the wire
	c.input[key(2, 6)] = 0x0000

	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Slave: 2, Register: u16(5), RegisterType: RegisterTypeInput,
				DataType: DataTypeUint, Count: 2, ReverseOrder: true},
		},
	}, c, nil, nil)

	v, err := e.ReadValue(SingleSlot(), FieldTemperature)
	if err != nil {
		t.Fatalf("ReadValue err=%v", err)
	}
	if v != 1 {
		t.Fatalf("got=%v want=1", v)
	}
	if c.input[key(2, 5)] != 1 {
		t.Fatalf("read must not mutate client memory")
	}
}

func TestReadWrite_MultiWordGoesOutAsOneWrite(t *testing.T) {
	c := newFakeClient()
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTargetTemperature, Slave: 1, Register: u16(20), DataType: DataTypeUint, Count: 2},
		},
	}, c, nil, nil)

	if err := e.WriteValue(SingleSlot(), FieldTargetTemperature, 65537); err != nil {
		t.Fatalf("WriteValue err=%v", err)
	}
	if c.multiWrites != 1 || c.lastMultiAddr != 20 {
		t.Fatalf("expected one multi write at 20, got %d at %d", c.multiWrites, c.lastMultiAddr)
	}
	if c.holding[key(1, 20)] != 1 || c.holding[key(1, 21)] != 1 {
		t.Fatalf("unexpected words: %d %d", c.holding[key(1, 20)], c.holding[key(1, 21)])
	}
}

func TestReadWrite_Coil(t *testing.T) {
	c := newFakeClient()
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldAuxHeat, Slave: 1, Register: u16(3), RegisterType: RegisterTypeCoil, Scale: 10, Offset: 5},
		},
	}, c, nil, nil)

	for _, on := range []float64{1, 0} {
		if err := e.WriteValue(SingleSlot(), FieldAuxHeat, on); err != nil {
			t.Fatalf("WriteValue err=%v", err)
		}
		got, err := e.ReadValue(SingleSlot(), FieldAuxHeat)
		if err != nil {
			t.Fatalf("ReadValue err=%v", err)
		}
		if got != on {
			t.Fatalf("coil wrote %v read %v (scale/offset must not apply)", on, got)
		}
	}
}

func TestRead_MultiplexedAddressing(t *testing.T) {
	c := newFakeClient()
	c.holding[key(1, 4)] = 215
	c.holding[key(1, 20)] = 190

	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Slave: 1, Registers: []uint16{4, 20}, Scale: 0.1},
		},
	}, c, nil, nil)

	v0, err := e.ReadValue(MultiplexedSlot(0), FieldTemperature)
	if err != nil {
		t.Fatalf("slot 0: %v", err)
	}
	v1, err := e.ReadValue(MultiplexedSlot(1), FieldTemperature)
	if err != nil {
		t.Fatalf("slot 1: %v", err)
	}
	if math.Abs(v0-21.5) > 1e-9 || math.Abs(v1-19.0) > 1e-9 {
		t.Fatalf("got %v/%v want 21.5/19", v0, v1)
	}

	if _, err := e.ReadValue(MultiplexedSlot(2), FieldTemperature); err == nil {
		t.Fatalf("expected error for missing slot register")
	}
	if _, err := e.ReadValue(SingleSlot(), FieldTemperature); err == nil {
		t.Fatalf("expected error for missing single register")
	}
}

func TestRead_UnknownFieldAndTransportError(t *testing.T) {
	c := newFakeClient()
	e := NewEngine(Config{
		Fields: []FieldConfig{{Field: FieldTemperature, Register: u16(1)}},
	}, c, nil, nil)

	if _, err := e.ReadValue(SingleSlot(), FieldHumidity); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	c.failReads = true
	if _, err := e.ReadValue(SingleSlot(), FieldTemperature); err == nil {
		t.Fatalf("expected transport error")
	}
	if e.Errors() != 0 {
		t.Fatalf("ReadValue must not touch the fault counter")
	}
}

func TestDiscover_Multiplexed(t *testing.T) {
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Registers: []uint16{1, 2, 3}},
			{Field: FieldHVACMode, Registers: []uint16{10, 11}},
		},
	}, newFakeClient(), nil, nil)

	for k := 0; k < 2; k++ {
		if !e.HasValidRegister(k) {
			t.Fatalf("HasValidRegister(%d) should be true", k)
		}
	}
	if e.HasValidRegister(2) {
		t.Fatalf("HasValidRegister(2) should be false")
	}

	slots, err := e.Discover()
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}
	if len(slots) != 2 || e.Devices() != 2 {
		t.Fatalf("expected 2 devices, got %d/%d", len(slots), e.Devices())
	}
	if !slots[1].Multiplexed() || slots[1].Index() != 1 {
		t.Fatalf("unexpected slot %v", slots[1])
	}
}

func TestDiscover_CapsAtMaxDevices(t *testing.T) {
	regs := make([]uint16, MaxDevices+5)
	e := NewEngine(Config{
		Fields: []FieldConfig{{Field: FieldTemperature, Registers: regs}},
	}, newFakeClient(), nil, nil)

	slots, err := e.Discover()
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}
	if len(slots) != MaxDevices {
		t.Fatalf("expected %d devices, got %d", MaxDevices, len(slots))
	}
}

func TestDiscover_SingleFallback(t *testing.T) {
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Register: u16(1)},
			{Field: FieldHVACMode, Register: u16(2)},
		},
	}, newFakeClient(), nil, nil)

	slots, err := e.Discover()
	if err != nil {
		t.Fatalf("Discover err=%v", err)
	}
	if len(slots) != 1 || slots[0].Multiplexed() {
		t.Fatalf("expected one single slot, got %v", slots)
	}
}

func TestDiscover_MissingRegister(t *testing.T) {
	e := NewEngine(Config{
		Fields: []FieldConfig{
			{Field: FieldTemperature, Register: u16(1)},
			{Field: FieldHVACMode, Registers: []uint16{}},
		},
	}, newFakeClient(), nil, nil)

	if _, err := e.Discover(); err == nil {
		t.Fatalf("expected missing register error")
	}
}

func TestDiscover_NoFields(t *testing.T) {
	e := NewEngine(Config{}, newFakeClient(), nil, nil)
	if _, err := e.Discover(); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestClose(t *testing.T) {
	c := newFakeClient()
	e := NewEngine(Config{Fields: []FieldConfig{{Field: FieldTemperature, Register: u16(1)}}}, c, nil, nil)
	e.sleep = func(time.Duration) {}

	if err := e.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	if !c.closed {
		t.Fatalf("client not closed")
	}
	if _, err := e.ReadValue(SingleSlot(), FieldTemperature); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
