// internal/poller/poller.go
package poller

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/modbus-climate/internal/climate"
	"github.com/tamzrod/modbus-climate/internal/register"
	"github.com/tamzrod/modbus-climate/internal/status"
)

// CommandQueue is the number of pending commands per climate.
const CommandQueue = 16

// Config is the minimal runtime config the poller needs.
type Config struct {
	ClimateID string
	Interval  time.Duration
}

// Poller drives every device on one engine from a single goroutine.
// Reads, writes and fault handling never overlap.
type Poller struct {
	cfg      Config
	engine   *register.Engine
	devices  []*climate.Device
	trackers []*status.Tracker

	commands   chan Command
	publishers []Publisher

	now func() time.Time
	log *log.Entry
}

// New creates a poller with immutable config.
func New(cfg Config, engine *register.Engine, devices []*climate.Device) (*Poller, error) {
	if cfg.ClimateID == "" {
		return nil, errors.New("poller: climate id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if engine == nil {
		return nil, errors.New("poller: engine required")
	}
	if len(devices) == 0 {
		return nil, errors.New("poller: at least one device required")
	}

	trackers := make([]*status.Tracker, len(devices))
	for i := range trackers {
		trackers[i] = status.NewTracker()
	}

	return &Poller{
		cfg:      cfg,
		engine:   engine,
		devices:  devices,
		trackers: trackers,
		commands: make(chan Command, CommandQueue),
		now:      time.Now,
		log:      log.WithField("climate", cfg.ClimateID),
	}, nil
}

// AddPublisher registers a report consumer. Call before Run.
func (p *Poller) AddPublisher(pub Publisher) {
	p.publishers = append(p.publishers, pub)
}

// DeviceNames lists devices in discovery order.
func (p *Poller) DeviceNames() []string {
	out := make([]string, len(p.devices))
	for i, d := range p.devices {
		out[i] = d.Name()
	}
	return out
}

// PollOnce updates every device in order and reports the result.
// A failing device does not stop the others.
func (p *Poller) PollOnce() Report {
	now := p.now()

	for i, d := range p.devices {
		err := d.Update()
		if err != nil {
			p.log.WithField("device", d.Name()).Warnf("update failed: %v", err)
		}
		before := p.trackers[i].Snapshot().Health
		after := p.trackers[i].Observe(err, p.engine.Errors(), now).Health
		if after != before {
			p.log.WithField("device", d.Name()).Infof(
				"health %s -> %s", status.HealthName(before), status.HealthName(after))
		}
	}

	return p.report(now)
}

func (p *Poller) report(now time.Time) Report {
	r := Report{
		ClimateID: p.cfg.ClimateID,
		At:        now,
		Devices:   make([]DeviceReport, len(p.devices)),
		Engine:    p.engine.Stats(),
	}
	for i, d := range p.devices {
		r.Devices[i] = DeviceReport{
			State:  d.State(),
			Status: p.trackers[i].Snapshot(),
		}
	}
	return r
}

func (p *Poller) publish(r Report) {
	for _, pub := range p.publishers {
		pub.Publish(r)
	}
}

func (p *Poller) device(name string) (*climate.Device, bool) {
	for _, d := range p.devices {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}
