// internal/transport/transport.go
package transport

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client is a connected Modbus master addressing any slave per call.
type Client interface {
	ReadCoils(slave uint8, addr, qty uint16) ([]bool, error)
	ReadHoldingRegisters(slave uint8, addr, qty uint16) ([]uint16, error)
	ReadInputRegisters(slave uint8, addr, qty uint16) ([]uint16, error)
	WriteCoil(slave uint8, addr uint16, value bool) error
	WriteRegister(slave uint8, addr uint16, value uint16) error
	WriteRegisters(slave uint8, addr uint16, values []uint16) error
	Close() error
}

// Config is minimal transport config.
type Config struct {
	Endpoint string // tcp://host:port, rtuovertcp://host:port, rtu:///dev/ttyUSB0
	Timeout  time.Duration

	// serial only
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

const (
	SchemeTCP        = "tcp"
	SchemeRTU        = "rtu"
	SchemeRTUOverTCP = "rtuovertcp"
)

// SplitEndpoint separates scheme and address.
func SplitEndpoint(endpoint string) (scheme, addr string, err error) {
	scheme, addr, ok := strings.Cut(endpoint, "://")
	if !ok || addr == "" {
		return "", "", errors.Errorf("transport: malformed endpoint %q", endpoint)
	}
	return scheme, addr, nil
}

// New creates a connected client for the endpoint's scheme.
// One attempt per call.
func New(cfg Config) (Client, error) {
	scheme, addr, err := SplitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	var c Client
	switch scheme {
	case SchemeTCP:
		c, err = NewTCP(addr, cfg.Timeout)
	case SchemeRTU:
		c, err = NewRTU(addr, cfg)
	case SchemeRTUOverTCP:
		c, err = NewURL(cfg)
	default:
		return nil, errors.Errorf("transport: unsupported scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
