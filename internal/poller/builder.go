// internal/poller/builder.go
package poller

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/modbus-climate/internal/climate"
	cfg "github.com/tamzrod/modbus-climate/internal/config"
	"github.com/tamzrod/modbus-climate/internal/register"
	"github.com/tamzrod/modbus-climate/internal/transport"
)

// Build constructs a Poller and wires the Modbus client lifecycle.
// Connection is reused while healthy; on repeated faults the engine
// discards the client and asks factory for a new one.
// The returned closer releases the transport.
func Build(c cfg.ClimateConfig) (*Poller, func() error, error) {
	tc := transport.Config{
		Endpoint: c.Transport.Endpoint,
		Timeout:  time.Duration(c.Transport.TimeoutMs) * time.Millisecond,
		BaudRate: c.Transport.BaudRate,
		DataBits: c.Transport.DataBits,
		Parity:   c.Transport.Parity,
		StopBits: c.Transport.StopBits,
	}

	// client factory: ONE attempt per call
	factory := func() (register.Client, error) {
		return transport.New(tc)
	}

	reset, err := transport.NewResetter(c.Transport.Endpoint)
	if err != nil {
		return nil, nil, err
	}

	// initial client (fail fast at startup)
	client, err := factory()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "climate %s", c.ID)
	}

	engine := register.NewEngine(
		register.Config{ID: c.ID, Fields: FieldConfigs(c.Registers)},
		client,
		factory,
		reset,
	)

	slots, err := engine.Discover()
	if err != nil {
		engine.Close()
		return nil, nil, errors.Wrapf(err, "climate %s", c.ID)
	}

	names := DeviceNames(c.Name, slots)
	opts := Options(c)

	devices := make([]*climate.Device, len(slots))
	for i, s := range slots {
		devices[i] = climate.NewDevice(names[i], s, engine, opts)
	}

	p, err := New(
		Config{
			ClimateID: c.ID,
			Interval:  time.Duration(c.Poll.IntervalMs) * time.Millisecond,
		},
		engine,
		devices,
	)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}

	log.WithField("climate", c.ID).Infof("%d device(s): %v", len(devices), names)
	return p, engine.Close, nil
}

// FieldConfigs converts normalized register config into engine input.
// Entries with an unknown register type are logged and left out.
func FieldConfigs(regs map[string]cfg.RegisterConfig) []register.FieldConfig {
	out := make([]register.FieldConfig, 0, len(regs))
	for name, r := range regs {
		rt, err := register.ParseRegisterType(r.RegisterType)
		if err != nil {
			log.WithField("field", name).Errorf("register dropped: %v", err)
			continue
		}

		fc := register.FieldConfig{
			Field:        register.Field(name),
			RegisterType: rt,
			Slave:        1,
			Register:     r.Register,
			Registers:    r.Registers,
			Count:        r.Count,
			DataType:     register.DataType(r.DataType),
			Structure:    r.Structure,
			ReverseOrder: r.ReverseOrder,
			Offset:       r.Offset,
		}
		if r.Slave != nil {
			fc.Slave = *r.Slave
		}
		if r.Scale != nil {
			fc.Scale = *r.Scale
		}
		out = append(out, fc)
	}
	return out
}

// DeviceNames assigns one name per discovered slot.
// A name list is indexed by device; a single name is numbered from 1 when
// devices are multiplexed and used as is otherwise.
func DeviceNames(n cfg.Names, slots []register.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		switch {
		case !n.Single && i < len(n.Values):
			out[i] = n.Values[i]
		case !n.Single:
			out[i] = cfg.DefaultName + strconv.Itoa(i+1)
		case s.Multiplexed():
			out[i] = n.Values[0] + strconv.Itoa(s.Index()+1)
		default:
			out[i] = n.Values[0]
		}
	}
	return out
}

// Options builds the per-climate mode maps and sentinels.
func Options(c cfg.ClimateConfig) climate.Options {
	opts := climate.DefaultOptions()
	opts.HVACModes = modeMap(c.HVACModes)
	opts.FanModes = modeMap(c.FanModes)
	opts.SwingModes = modeMap(c.SwingModes)
	opts.PresetModes = modeMap(c.PresetModes)

	if c.HVACOffValue != nil {
		opts.HVACOffValue = *c.HVACOffValue
	}
	if c.HVACOnValue != nil {
		opts.HVACOnValue = *c.HVACOnValue
	}
	if c.AuxHeatOffValue != nil {
		opts.AuxHeatOffValue = *c.AuxHeatOffValue
	}
	if c.AuxHeatOnValue != nil {
		opts.AuxHeatOnValue = *c.AuxHeatOnValue
	}
	return opts
}

func modeMap(m cfg.ModeMap) climate.ModeMap {
	modes := make([]climate.Mode, len(m))
	for i, e := range m {
		modes[i] = climate.Mode{Name: e.Name, Value: e.Value}
	}
	return climate.NewModeMap(modes...)
}
