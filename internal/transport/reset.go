// internal/transport/reset.go
package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// ResetMagic makes the serial-to-ethernet bridge in front of the bus
// restart itself.
var ResetMagic = []byte{0x55, 0xAA, 0x55, 0x00, 0x25, 0x80, 0x03, 0xA8}

// ResetTimeout bounds the reset connection.
const ResetTimeout = 5 * time.Second

// Reset sends ResetMagic over a raw TCP connection to host:port.
func Reset(address string) error {
	conn, err := net.DialTimeout("tcp", address, ResetTimeout)
	if err != nil {
		return errors.Wrap(err, "reset dial failed")
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(ResetTimeout))
	if _, err := conn.Write(ResetMagic); err != nil {
		return errors.Wrap(err, "reset write failed")
	}
	return nil
}

// NewResetter returns a reset hook for network endpoints.
// Serial endpoints have nothing to reset and get nil.
func NewResetter(endpoint string) (func() error, error) {
	scheme, addr, err := SplitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if scheme == SchemeRTU {
		return nil, nil
	}
	return func() error { return Reset(addr) }, nil
}
