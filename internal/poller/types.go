// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/modbus-climate/internal/climate"
	"github.com/tamzrod/modbus-climate/internal/register"
	"github.com/tamzrod/modbus-climate/internal/status"
)

// DeviceReport is one device's state and health after a cycle.
type DeviceReport struct {
	State  climate.State
	Status status.Snapshot
}

// Report is a snapshot produced by one poll cycle or applied command.
type Report struct {
	ClimateID string
	At        time.Time

	Devices []DeviceReport
	Engine  register.Stats
}

// Publisher is the delivery-only contract for reports.
// Publish runs on the polling goroutine and must not block for long.
type Publisher interface {
	Publish(r Report)
}
