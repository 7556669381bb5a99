// internal/transport/transport_test.go
package transport

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/simonvetter/modbus"
)

// ---- in-process slave ----

type memSlave struct {
	mu      sync.Mutex
	coils   map[uint16]bool
	holding map[uint16]uint16
	input   map[uint16]uint16
	units   []uint8
}

func newMemSlave() *memSlave {
	return &memSlave{
		coils:   map[uint16]bool{},
		holding: map[uint16]uint16{},
		input:   map[uint16]uint16{},
	}
}

func (s *memSlave) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units = append(s.units, req.UnitId)
	out := make([]bool, 0, req.Quantity)
	for i := uint16(0); i < req.Quantity; i++ {
		a := req.Addr + i
		if req.IsWrite {
			s.coils[a] = req.Args[i]
		}
		out = append(out, s.coils[a])
	}
	return out, nil
}

func (s *memSlave) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (s *memSlave) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units = append(s.units, req.UnitId)
	out := make([]uint16, 0, req.Quantity)
	for i := uint16(0); i < req.Quantity; i++ {
		a := req.Addr + i
		if req.IsWrite {
			s.holding[a] = req.Args[i]
		}
		out = append(out, s.holding[a])
	}
	return out, nil
}

func (s *memSlave) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units = append(s.units, req.UnitId)
	out := make([]uint16, 0, req.Quantity)
	for i := uint16(0); i < req.Quantity; i++ {
		out = append(out, s.input[req.Addr+i])
	}
	return out, nil
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func startSlave(t *testing.T) (*memSlave, string) {
	t.Helper()

	slave := newMemSlave()
	addr := freeAddr(t)

	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + addr,
		Timeout:    5 * time.Second,
		MaxClients: 4,
	}, slave)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return slave, addr
}

// exercise runs the same read/write sequence against any Client.
func exercise(t *testing.T, c Client, slave *memSlave) {
	t.Helper()

	slave.mu.Lock()
	slave.holding[10] = 215
	slave.input[3] = 0xBEEF
	slave.coils[7] = true
	slave.mu.Unlock()

	regs, err := c.ReadHoldingRegisters(2, 10, 1)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	if len(regs) != 1 || regs[0] != 215 {
		t.Fatalf("holding: got %v", regs)
	}

	regs, err = c.ReadInputRegisters(2, 3, 1)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if regs[0] != 0xBEEF {
		t.Fatalf("input: got %#x", regs[0])
	}

	bits, err := c.ReadCoils(2, 6, 3)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if len(bits) != 3 || bits[0] || !bits[1] || bits[2] {
		t.Fatalf("coils: got %v", bits)
	}

	if err := c.WriteRegister(3, 20, 160); err != nil {
		t.Fatalf("write register: %v", err)
	}
	if err := c.WriteRegisters(3, 30, []uint16{0x0001, 0x86A0}); err != nil {
		t.Fatalf("write registers: %v", err)
	}
	if err := c.WriteCoil(3, 8, true); err != nil {
		t.Fatalf("write coil: %v", err)
	}

	slave.mu.Lock()
	defer slave.mu.Unlock()

	if slave.holding[20] != 160 {
		t.Fatalf("holding[20]: got %d", slave.holding[20])
	}
	if slave.holding[30] != 0x0001 || slave.holding[31] != 0x86A0 {
		t.Fatalf("holding[30:32]: got %#x %#x", slave.holding[30], slave.holding[31])
	}
	if !slave.coils[8] {
		t.Fatalf("coil 8 not set")
	}
	if got := slave.units[len(slave.units)-1]; got != 3 {
		t.Fatalf("unit id: got %d, want 3", got)
	}
}

func TestBurrowClient_TCP(t *testing.T) {
	slave, addr := startSlave(t)

	c, err := New(Config{Endpoint: "tcp://" + addr, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*BurrowClient); !ok {
		t.Fatalf("tcp scheme: got %T", c)
	}
	exercise(t, c, slave)
}

func TestURLClient_TCP(t *testing.T) {
	slave, addr := startSlave(t)

	c, err := NewURL(Config{Endpoint: "tcp://" + addr, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	exercise(t, c, slave)
}

func TestNew_ConnectFailure(t *testing.T) {
	addr := freeAddr(t)

	c, err := New(Config{Endpoint: "tcp://" + addr, Timeout: 200 * time.Millisecond})
	if err == nil {
		c.Close()
		t.Fatalf("expected connect error")
	}
	if c != nil {
		t.Fatalf("expected nil client on error, got %T", c)
	}
}

func TestNew_BadEndpoint(t *testing.T) {
	for _, ep := range []string{"", "localhost:502", "udp://localhost:502", "tcp://"} {
		if _, err := New(Config{Endpoint: ep}); err == nil {
			t.Fatalf("%q: expected error", ep)
		}
	}
}

func TestSplitEndpoint(t *testing.T) {
	scheme, addr, err := SplitEndpoint("rtu:///dev/ttyUSB0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheme != SchemeRTU || addr != "/dev/ttyUSB0" {
		t.Fatalf("got %q %q", scheme, addr)
	}
}

// ---- reset ----

func TestReset_SendsMagic(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			got <- nil
			return
		}
		defer conn.Close()
		buf := make([]byte, len(ResetMagic))
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := io.ReadFull(conn, buf); err != nil {
			got <- nil
			return
		}
		got <- buf
	}()

	reset, err := NewResetter("rtuovertcp://" + l.Addr().String())
	if err != nil {
		t.Fatalf("resetter: %v", err)
	}
	if err := reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	b := <-got
	want := []byte{0x55, 0xAA, 0x55, 0x00, 0x25, 0x80, 0x03, 0xA8}
	if !bytes.Equal(b, want) {
		t.Fatalf("magic: got % x, want % x", b, want)
	}
}

func TestReset_DialFailure(t *testing.T) {
	if err := Reset(freeAddr(t)); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestNewResetter_SerialHasNone(t *testing.T) {
	reset, err := NewResetter("rtu:///dev/ttyUSB0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reset != nil {
		t.Fatalf("serial endpoint should have no reset hook")
	}
}

// ---- helpers ----

func TestUnpackBits(t *testing.T) {
	got := unpackBits([]byte{0x05, 0x01}, 10)
	want := []bool{true, false, true, false, false, false, false, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bit %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPackUnpackRegisters(t *testing.T) {
	b := packRegisters([]uint16{0x1234, 0xABCD})
	if !bytes.Equal(b, []byte{0x12, 0x34, 0xAB, 0xCD}) {
		t.Fatalf("pack: got % x", b)
	}
	r := unpackRegisters(b)
	if r[0] != 0x1234 || r[1] != 0xABCD {
		t.Fatalf("unpack: got %#x", r)
	}
}
