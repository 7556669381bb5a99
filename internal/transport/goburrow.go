// internal/transport/goburrow.go
package transport

import (
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
)

// BurrowClient wraps a goburrow handler (TCP or serial RTU).
// It serializes requests because it mutates SlaveId per request.
type BurrowClient struct {
	mu       sync.Mutex
	client   modbus.Client
	setSlave func(uint8)
	closer   func() error
}

// NewTCP connects a Modbus TCP client to host:port.
func NewTCP(address string, timeout time.Duration) (*BurrowClient, error) {
	h := modbus.NewTCPClientHandler(address)
	h.Timeout = timeout

	if err := h.Connect(); err != nil {
		return nil, errors.Wrap(err, "modbus tcp connect failed")
	}

	return &BurrowClient{
		client:   modbus.NewClient(h),
		setSlave: func(id uint8) { h.SlaveId = id },
		closer:   h.Close,
	}, nil
}

// NewRTU opens a serial RTU client on a device path.
func NewRTU(device string, cfg Config) (*BurrowClient, error) {
	h := modbus.NewRTUClientHandler(device)
	h.Timeout = cfg.Timeout
	h.BaudRate = 9600
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1

	if cfg.BaudRate > 0 {
		h.BaudRate = cfg.BaudRate
	}
	if cfg.DataBits > 0 {
		h.DataBits = cfg.DataBits
	}
	if cfg.Parity != "" {
		h.Parity = cfg.Parity
	}
	if cfg.StopBits > 0 {
		h.StopBits = cfg.StopBits
	}

	if err := h.Connect(); err != nil {
		return nil, errors.Wrap(err, "modbus rtu connect failed")
	}

	return &BurrowClient{
		client:   modbus.NewClient(h),
		setSlave: func(id uint8) { h.SlaveId = id },
		closer:   h.Close,
	}, nil
}

func (c *BurrowClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closer()
}

func (c *BurrowClient) ReadCoils(slave uint8, addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	b, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(b, int(qty)), nil
}

func (c *BurrowClient) ReadHoldingRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b), nil
}

func (c *BurrowClient) ReadInputRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	b, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b), nil
}

func (c *BurrowClient) WriteCoil(slave uint8, addr uint16, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	var v uint16
	if value {
		v = 0xFF00
	}
	_, err := c.client.WriteSingleCoil(addr, v)
	return err
}

func (c *BurrowClient) WriteRegister(slave uint8, addr uint16, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	_, err := c.client.WriteSingleRegister(addr, value)
	return err
}

func (c *BurrowClient) WriteRegisters(slave uint8, addr uint16, values []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(slave)
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(values)), packRegisters(values))
	return err
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<bitIdx) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
