// internal/poller/command.go
package poller

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tamzrod/modbus-climate/internal/climate"
)

// Attr names a settable device attribute.
type Attr string

const (
	AttrTemperature Attr = "temperature"
	AttrHumidity    Attr = "humidity"
	AttrHVACMode    Attr = "hvac_mode"
	AttrFanMode     Attr = "fan_mode"
	AttrSwingMode   Attr = "swing_mode"
	AttrPresetMode  Attr = "preset_mode"
	AttrAuxHeat     Attr = "aux_heat"
	AttrPower       Attr = "power"
)

var (
	ErrQueueFull     = errors.New("poller: command queue full")
	ErrUnknownDevice = errors.New("poller: unknown device")
	ErrUnknownAttr   = errors.New("poller: unknown attribute")
)

// Command is a state change requested from outside the polling goroutine.
type Command struct {
	Device  string
	Attr    Attr
	Payload string
}

// Submit queues a command for the polling goroutine.
// It never blocks.
func (p *Poller) Submit(cmd Command) error {
	select {
	case p.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Apply runs a command against its device. Not safe to call concurrently
// with Run; use Submit instead.
func (p *Poller) Apply(cmd Command) error {
	d, ok := p.device(cmd.Device)
	if !ok {
		return errors.Wrap(ErrUnknownDevice, cmd.Device)
	}

	payload := strings.TrimSpace(cmd.Payload)

	switch cmd.Attr {
	case AttrTemperature:
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return errors.Wrap(err, "temperature")
		}
		return d.SetTargetTemperature(v)

	case AttrHumidity:
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return errors.Wrap(err, "humidity")
		}
		return d.SetTargetHumidity(v)

	case AttrHVACMode:
		return d.SetHVACMode(climate.HVACMode(strings.ToLower(payload)))

	case AttrFanMode:
		return d.SetFanMode(payload)

	case AttrSwingMode:
		return d.SetSwingMode(payload)

	case AttrPresetMode:
		return d.SetPresetMode(payload)

	case AttrAuxHeat:
		on, err := parseSwitch(payload)
		if err != nil {
			return err
		}
		return d.SetAuxHeat(on)

	case AttrPower:
		on, err := parseSwitch(payload)
		if err != nil {
			return err
		}
		if on {
			return d.TurnOn()
		}
		return d.TurnOff()

	default:
		return errors.Wrap(ErrUnknownAttr, string(cmd.Attr))
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, errors.Errorf("invalid switch payload %q", s)
	}
}
