// internal/register/engine.go
package register

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// MaxDevices bounds multiplexed device discovery.
const MaxDevices = 100

var (
	ErrNoFields     = errors.New("no modbus items")
	ErrUnknownField = errors.New("field not configured")
	ErrNotConnected = errors.New("modbus client: not connected")
)

// Client abstracts the Modbus operations the engine needs.
// Every call addresses one slave.
type Client interface {
	ReadCoils(slave uint8, addr, qty uint16) ([]bool, error)
	ReadHoldingRegisters(slave uint8, addr, qty uint16) ([]uint16, error)
	ReadInputRegisters(slave uint8, addr, qty uint16) ([]uint16, error)
	WriteCoil(slave uint8, addr uint16, value bool) error
	WriteRegister(slave uint8, addr uint16, value uint16) error
	WriteRegisters(slave uint8, addr uint16, values []uint16) error
	Close() error
}

// Factory creates a fresh connected client. One attempt per call.
type Factory func() (Client, error)

// Resetter hard-resets the transport hardware.
type Resetter func() error

// Config is the engine's immutable input.
type Config struct {
	ID     string
	Fields []FieldConfig
}

// Engine owns the register map and the shared transport.
// It is not safe for concurrent use: one caller drives every device.
type Engine struct {
	id     string
	specs  map[Field]*Spec
	fields []Field

	client  Client
	factory Factory
	reset   Resetter
	sleep   func(time.Duration)

	errors     int
	devices    int
	resets     int
	reconnects int
}

// NewEngine builds the register map. Fields that fail to resolve are
// logged and left out; construction itself never fails.
func NewEngine(cfg Config, client Client, factory Factory, reset Resetter) *Engine {
	e := &Engine{
		id:      cfg.ID,
		specs:   make(map[Field]*Spec),
		client:  client,
		factory: factory,
		reset:   reset,
		sleep:   time.Sleep,
		devices: 1,
	}

	byField := make(map[Field]FieldConfig, len(cfg.Fields))
	for _, fc := range cfg.Fields {
		byField[fc.Field] = fc
	}

	for _, f := range Fields {
		fc, ok := byField[f]
		if !ok {
			continue
		}

		s, err := NewSpec(fc)
		if err != nil {
			log.WithFields(log.Fields{"climate": cfg.ID, "field": f}).Errorf("register dropped: %v", err)
			continue
		}

		e.specs[f] = s
		e.fields = append(e.fields, f)
	}

	return e
}

// Fields returns the active fields in read order.
func (e *Engine) Fields() []Field {
	return slices.Clone(e.fields)
}

// Has reports whether field made it into the register map.
func (e *Engine) Has(f Field) bool {
	_, ok := e.specs[f]
	return ok
}

// HasValidRegister reports whether every field lists a register for index.
func (e *Engine) HasValidRegister(index int) bool {
	for _, f := range e.fields {
		if index >= len(e.specs[f].Registers) {
			return false
		}
	}
	return true
}

// Discover scans multiplexed devices 0..MaxDevices-1 and stops at the
// first gap. Without any, it falls back to one single device, which needs
// an explicit register on every field.
func (e *Engine) Discover() ([]Slot, error) {
	if len(e.fields) == 0 {
		return nil, ErrNoFields
	}

	var slots []Slot
	for i := 0; i < MaxDevices; i++ {
		if !e.HasValidRegister(i) {
			break
		}
		slots = append(slots, MultiplexedSlot(i))
	}

	if len(slots) == 0 {
		for _, f := range e.fields {
			if e.specs[f].Register == nil {
				return nil, errors.Errorf("%s: no register", f)
			}
		}
		slots = []Slot{SingleSlot()}
	}

	e.devices = len(slots)
	return slots, nil
}

// Devices is the sub-device count found by Discover.
func (e *Engine) Devices() int { return e.devices }

// ReadValue reads one field for one device and returns its physical value.
// Coils read as 1 or 0 and skip scale/offset.
// Transport errors are returned as-is for the caller to escalate.
func (e *Engine) ReadValue(slot Slot, f Field) (float64, error) {
	s, ok := e.specs[f]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownField, "read %s", f)
	}
	addr, err := s.Address(slot)
	if err != nil {
		return 0, err
	}
	if err := e.connect(); err != nil {
		return 0, err
	}

	var regs []uint16

	switch s.Type {
	case RegisterTypeCoil:
		bits, err := e.client.ReadCoils(s.Slave, addr, s.Count)
		if err != nil {
			return 0, errors.Wrap(err, "read coils failed")
		}
		if len(bits) == 0 {
			return 0, errors.New("read coils: empty response")
		}
		if bits[0] {
			return 1, nil
		}
		return 0, nil

	case RegisterTypeInput:
		regs, err = e.client.ReadInputRegisters(s.Slave, addr, s.Count)
		if err != nil {
			return 0, errors.Wrap(err, "read input registers failed")
		}

	default:
		regs, err = e.client.ReadHoldingRegisters(s.Slave, addr, s.Count)
		if err != nil {
			return 0, errors.Wrap(err, "read holding registers failed")
		}
	}

	if len(regs) < int(s.Count) {
		return 0, errors.Errorf("read %s: got %d registers, want %d", f, len(regs), s.Count)
	}

	words := slices.Clone(regs[:s.Count])
	if s.ReverseOrder {
		slices.Reverse(words)
	}

	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[2*i:], w)
	}

	v, err := s.Layout.Decode(buf)
	if err != nil {
		return 0, errors.Wrapf(err, "decode %s", f)
	}

	return s.Scale*v + s.Offset, nil
}

// WriteValue writes a physical value for one device.
// Registers receive (value-offset)/scale packed through the field layout:
// one word goes out as a single-register write, wider fields as one
// multi-register write.
func (e *Engine) WriteValue(slot Slot, f Field, value float64) error {
	s, ok := e.specs[f]
	if !ok {
		return errors.Wrapf(ErrUnknownField, "write %s", f)
	}
	addr, err := s.Address(slot)
	if err != nil {
		return err
	}
	if err := e.connect(); err != nil {
		return err
	}

	if s.Type == RegisterTypeCoil {
		return errors.Wrap(e.client.WriteCoil(s.Slave, addr, value != 0), "write coil failed")
	}

	buf, err := s.Layout.Encode((value - s.Offset) / s.Scale)
	if err != nil {
		return errors.Wrapf(err, "encode %s", f)
	}

	words := make([]uint16, len(buf)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(buf[2*i:])
	}
	if s.ReverseOrder {
		slices.Reverse(words)
	}

	if len(words) == 1 {
		return errors.Wrap(e.client.WriteRegister(s.Slave, addr, words[0]), "write register failed")
	}
	return errors.Wrap(e.client.WriteRegisters(s.Slave, addr, words), "write registers failed")
}

// connect makes one factory attempt when a previous reconnect left the
// engine without a client.
func (e *Engine) connect() error {
	if e.client != nil {
		return nil
	}
	if e.factory == nil {
		return ErrNotConnected
	}

	c, err := e.factory()
	if err != nil {
		return errors.Wrapf(ErrNotConnected, "connect: %v", err)
	}
	e.client = c
	return nil
}

// Close releases the transport.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
