// internal/climate/device.go
package climate

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/modbus-climate/internal/register"
)

// Options are the per-climate mode maps and sentinel values shared by all
// devices on one engine.
type Options struct {
	HVACModes   ModeMap
	FanModes    ModeMap
	SwingModes  ModeMap
	PresetModes ModeMap

	HVACOffValue    int64
	HVACOnValue     int64
	AuxHeatOffValue int64
	AuxHeatOnValue  int64
}

// DefaultOptions returns the sentinel defaults: off=0, on=1.
func DefaultOptions() Options {
	return Options{HVACOnValue: 1, AuxHeatOnValue: 1}
}

// Device is one logical thermostat on a shared engine.
// Accessors only read the local cache; Update and the mutators touch the
// transport. Like the engine, a Device is driven by a single goroutine.
type Device struct {
	name   string
	slot   register.Slot
	engine *register.Engine
	opts   Options

	values     map[register.Field]float64
	skipUpdate bool
	lastOnMode HVACMode

	log *log.Entry
}

func NewDevice(name string, slot register.Slot, engine *register.Engine, opts Options) *Device {
	return &Device{
		name:   name,
		slot:   slot,
		engine: engine,
		opts:   opts,
		values: make(map[register.Field]float64),
		log:    log.WithField("device", name),
	}
}

func (d *Device) Name() string { return d.name }

// Update refreshes the cache from the device.
// Right after a local write it does nothing once. On the first failed
// field it escalates through the engine and abandons the cycle; fields not
// reached keep their previous values.
func (d *Device) Update() error {
	if d.skipUpdate {
		d.skipUpdate = false
		d.log.Debug("skip update")
		return nil
	}

	d.log.Debug("update")
	for _, f := range d.engine.Fields() {
		v, err := d.engine.ReadValue(d.slot, f)
		if err != nil {
			action := d.engine.HandleFault()
			d.log.Debugf("exception %d on %s: %v (%s)", d.engine.Errors(), f, err, action)
			return errors.Wrapf(err, "update %s", f)
		}
		d.values[f] = v
	}

	d.engine.ResetErrors()
	return nil
}

// ---- accessors ----

func (d *Device) value(f register.Field) (float64, bool) {
	v, ok := d.values[f]
	return v, ok
}

func (d *Device) CurrentTemperature() (float64, bool) {
	return d.value(register.FieldTemperature)
}

func (d *Device) TargetTemperature() (float64, bool) {
	return d.value(register.FieldTargetTemperature)
}

// TargetTemperatureStep is the setpoint granularity.
func (d *Device) TargetTemperatureStep() float64 { return 1 }

func (d *Device) CurrentHumidity() (float64, bool) {
	return d.value(register.FieldHumidity)
}

func (d *Device) TargetHumidity() (float64, bool) {
	return d.value(register.FieldTargetHumidity)
}

// HVACMode derives the mode from hvac_off and hvac_mode, defaulting to off.
// Any other result is remembered for TurnOn.
func (d *Device) HVACMode() HVACMode {
	if d.engine.Has(register.FieldHVACOff) {
		if v, ok := d.value(register.FieldHVACOff); ok && v == float64(d.opts.HVACOffValue) {
			return HVACModeOff
		}
	}

	mode := HVACModeOff
	if name, ok := d.mode(d.opts.HVACModes, register.FieldHVACMode); ok {
		mode = HVACMode(name)
	}
	if mode != HVACModeOff {
		d.lastOnMode = mode
	}
	return mode
}

// HVACAction maps the current mode to an action. Modes outside the fixed
// table report idle.
func (d *Device) HVACAction() HVACAction {
	if a, ok := hvacActions[d.HVACMode()]; ok {
		return a
	}
	return HVACActionIdle
}

func (d *Device) FanMode() (string, bool) {
	return d.mode(d.opts.FanModes, register.FieldFanMode)
}

func (d *Device) SwingMode() (string, bool) {
	return d.mode(d.opts.SwingModes, register.FieldSwingMode)
}

func (d *Device) PresetMode() (string, bool) {
	return d.mode(d.opts.PresetModes, register.FieldPresetMode)
}

func (d *Device) AuxHeat() bool {
	v, ok := d.value(register.FieldAuxHeat)
	return ok && v == float64(d.opts.AuxHeatOnValue)
}

func (d *Device) HVACModes() []string   { return d.opts.HVACModes.Names() }
func (d *Device) FanModes() []string    { return d.opts.FanModes.Names() }
func (d *Device) SwingModes() []string  { return d.opts.SwingModes.Names() }
func (d *Device) PresetModes() []string { return d.opts.PresetModes.Names() }

// Features reports the capabilities backed by configured fields.
func (d *Device) Features() Feature {
	var f Feature
	for _, field := range d.engine.Fields() {
		switch field {
		case register.FieldTargetTemperature:
			f |= FeatureTargetTemperature
		case register.FieldTargetHumidity:
			f |= FeatureTargetHumidity
		case register.FieldFanMode:
			f |= FeatureFanMode
		case register.FieldPresetMode:
			f |= FeaturePresetMode
		case register.FieldSwingMode:
			f |= FeatureSwingMode
		case register.FieldAuxHeat:
			f |= FeatureAuxHeat
		}
	}
	return f
}

func (d *Device) mode(modes ModeMap, f register.Field) (string, bool) {
	v, ok := d.value(f)
	if !ok {
		return "", false
	}
	if name, ok := modes.Name(v); ok {
		return name, true
	}
	d.log.Errorf("invalid value %v for %s", v, f)
	return "", false
}

// ---- mutators ----

func (d *Device) SetTargetTemperature(v float64) error {
	return d.setValue(register.FieldTargetTemperature, v)
}

func (d *Device) SetTargetHumidity(v float64) error {
	return d.setValue(register.FieldTargetHumidity, v)
}

// SetHVACMode writes the on/off register when there is one, then the mode.
// Modes the device does not support are replaced by the best available one.
func (d *Device) SetHVACMode(mode HVACMode) error {
	if d.engine.Has(register.FieldHVACOff) {
		v := d.opts.HVACOnValue
		if mode == HVACModeOff {
			v = d.opts.HVACOffValue
		}
		if err := d.setValue(register.FieldHVACOff, float64(v)); err != nil {
			return err
		}
		if mode == HVACModeOff {
			return nil
		}
	}

	if !d.opts.HVACModes.Has(string(mode)) {
		best := d.bestHVACMode()
		d.log.Warnf("fix operation mode from %s to %s", mode, best)
		mode = best
	}

	return d.setMode(d.opts.HVACModes, register.FieldHVACMode, string(mode))
}

func (d *Device) bestHVACMode() HVACMode {
	for _, m := range bestModes {
		if d.opts.HVACModes.Has(string(m)) {
			return m
		}
	}
	return ""
}

// TurnOn restores the last mode seen on, or the best available mode.
func (d *Device) TurnOn() error {
	mode := d.lastOnMode
	if mode == "" {
		mode = d.bestHVACMode()
	}
	d.log.Debugf("turn on with last operation mode: %s", mode)
	return d.SetHVACMode(mode)
}

func (d *Device) TurnOff() error {
	return d.SetHVACMode(HVACModeOff)
}

func (d *Device) SetFanMode(mode string) error {
	return d.setMode(d.opts.FanModes, register.FieldFanMode, mode)
}

func (d *Device) SetSwingMode(mode string) error {
	return d.setMode(d.opts.SwingModes, register.FieldSwingMode, mode)
}

func (d *Device) SetPresetMode(mode string) error {
	return d.setMode(d.opts.PresetModes, register.FieldPresetMode, mode)
}

func (d *Device) SetAuxHeat(on bool) error {
	v := d.opts.AuxHeatOffValue
	if on {
		v = d.opts.AuxHeatOnValue
	}
	return d.setValue(register.FieldAuxHeat, float64(v))
}

// setMode writes a mapped mode; unmapped modes are logged and ignored.
func (d *Device) setMode(modes ModeMap, f register.Field, mode string) error {
	v, ok := modes.Value(mode)
	if !ok {
		d.log.Errorf("invalid mode %s for %s", mode, f)
		return nil
	}
	return d.setValue(f, float64(v))
}

// setValue writes through the engine and caches the value without reading
// it back. The next Update is skipped.
func (d *Device) setValue(f register.Field, v float64) error {
	d.log.Debugf("write %s = %v", f, v)
	d.skipUpdate = true
	if err := d.engine.WriteValue(d.slot, f, v); err != nil {
		return err
	}
	d.values[f] = v
	return nil
}
