// internal/transport/vetter.go
package transport

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/simonvetter/modbus"
)

// URLClient wraps a simonvetter client, which understands URL endpoints
// including RTU framing over a TCP socket (serial-to-ethernet bridges).
type URLClient struct {
	mu     sync.Mutex
	client *modbus.ModbusClient
}

// NewURL opens a client for a simonvetter URL (tcp://, rtuovertcp://, ...).
func NewURL(cfg Config) (*URLClient, error) {
	c, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     cfg.Endpoint,
		Timeout: cfg.Timeout,
		Speed:   uint(cfg.BaudRate),
	})
	if err != nil {
		return nil, errors.Wrap(err, "modbus client config failed")
	}

	if err := c.Open(); err != nil {
		return nil, errors.Wrap(err, "modbus open failed")
	}

	return &URLClient{client: c}, nil
}

func (c *URLClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}

func (c *URLClient) ReadCoils(slave uint8, addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetUnitId(slave); err != nil {
		return nil, err
	}
	return c.client.ReadCoils(addr, qty)
}

func (c *URLClient) ReadHoldingRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(slave, addr, qty, modbus.HOLDING_REGISTER)
}

func (c *URLClient) ReadInputRegisters(slave uint8, addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(slave, addr, qty, modbus.INPUT_REGISTER)
}

func (c *URLClient) readRegisters(slave uint8, addr, qty uint16, t modbus.RegType) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetUnitId(slave); err != nil {
		return nil, err
	}
	return c.client.ReadRegisters(addr, qty, t)
}

func (c *URLClient) WriteCoil(slave uint8, addr uint16, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetUnitId(slave); err != nil {
		return err
	}
	return c.client.WriteCoil(addr, value)
}

func (c *URLClient) WriteRegister(slave uint8, addr uint16, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetUnitId(slave); err != nil {
		return err
	}
	return c.client.WriteRegister(addr, value)
}

func (c *URLClient) WriteRegisters(slave uint8, addr uint16, values []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetUnitId(slave); err != nil {
		return err
	}
	return c.client.WriteRegisters(addr, values)
}
