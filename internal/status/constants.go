// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// SecondsInErrorMax caps SecondsInError.
const SecondsInErrorMax = 65535

// ---- AVAILABILITY ----

const (
	Online  = "online"
	Offline = "offline"
)

// Availability maps a health code to an availability payload.
// Only a healthy device is online.
func Availability(health uint16) string {
	if health == HealthOK {
		return Online
	}
	return Offline
}

// HealthName is a short label for logs and metrics.
func HealthName(health uint16) string {
	switch health {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}
