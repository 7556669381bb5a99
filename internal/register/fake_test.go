// internal/register/fake_test.go
package register

import (
	"errors"
	"fmt"
)

// fakeClient is an in-memory register map keyed by slave/address.
type fakeClient struct {
	holding map[string]uint16
	input   map[string]uint16
	coils   map[string]bool

	failReads bool
	closed    bool

	reads         int
	singleWrites  int
	multiWrites   int
	lastMultiAddr uint16
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		holding: map[string]uint16{},
		input:   map[string]uint16{},
		coils:   map[string]bool{},
	}
}

func key(slave uint8, addr uint16) string { return fmt.Sprintf("%d/%d", slave, addr) }

func (f *fakeClient) ReadCoils(slave uint8, addr, qty uint16) ([]bool, error) {
	f.reads++
	if f.failReads {
		return nil, errors.New("fail coils")
	}
	out := make([]bool, qty)
	for i := range out {
		out[i] = f.coils[key(slave, addr+uint16(i))]
	}
	return out, nil
}

func (f *fakeClient) ReadHoldingRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	f.reads++
	if f.failReads {
		return nil, errors.New("fail holding")
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = f.holding[key(slave, addr+uint16(i))]
	}
	return out, nil
}

func (f *fakeClient) ReadInputRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	f.reads++
	if f.failReads {
		return nil, errors.New("fail input")
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = f.input[key(slave, addr+uint16(i))]
	}
	return out, nil
}

func (f *fakeClient) WriteCoil(slave uint8, addr uint16, value bool) error {
	f.coils[key(slave, addr)] = value
	return nil
}

func (f *fakeClient) WriteRegister(slave uint8, addr uint16, value uint16) error {
	f.singleWrites++
	f.holding[key(slave, addr)] = value
	return nil
}

func (f *fakeClient) WriteRegisters(slave uint8, addr uint16, values []uint16) error {
	f.multiWrites++
	f.lastMultiAddr = addr
	for i, v := range values {
		f.holding[key(slave, addr+uint16(i))] = v
	}
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func u16(v uint16) *uint16 { return &v }
