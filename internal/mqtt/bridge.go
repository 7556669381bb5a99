// internal/mqtt/bridge.go
package mqtt

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/modbus-climate/internal/poller"
	"github.com/tamzrod/modbus-climate/internal/status"
)

const (
	// ConnectTimeout bounds the wait on the first connection attempt.
	ConnectTimeout = 10 * time.Second

	// ConnectRetryInterval paces retries of the initial connection.
	ConnectRetryInterval = 10 * time.Second
)

// Config is the broker connection.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
}

// Submitter accepts commands for the devices it owns.
type Submitter interface {
	Submit(cmd poller.Command) error
}

// Bridge publishes device state and turns set topics into commands.
//
// Topics:
//
//	<prefix>/<device>/state          retained JSON state
//	<prefix>/<device>/availability   retained online|offline
//	<prefix>/<device>/set/<attr>     commands
//	<prefix>/bridge/availability     retained online|offline (last will)
type Bridge struct {
	cfg    Config
	client paho.Client

	mu     sync.RWMutex
	routes map[string]Submitter

	send func(topic string, payload []byte)
	log  *log.Entry
}

func New(cfg Config) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		routes: make(map[string]Submitter),
		log:    log.WithField("broker", cfg.Broker),
	}
	b.send = b.publishRetained

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(ConnectRetryInterval)
	opts.SetWill(b.bridgeTopic(), status.Offline, 0, true)
	opts.SetOnConnectHandler(func(c paho.Client) {
		b.log.Info("connected to MQTT broker")
		c.Subscribe(b.cfg.Prefix+"/+/set/+", 0, b.handleSet)
		b.send(b.bridgeTopic(), []byte(status.Online))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.log.Warnf("connection lost: %v", err)
	})

	b.client = paho.NewClient(opts)
	return b
}

// Route sends commands for device to s.
func (b *Bridge) Route(device string, s Submitter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.routes[device]; dup {
		b.log.Warnf("device name %s used twice, commands go to the last one", device)
	}
	b.routes[device] = s
}

// Connect starts connecting and waits up to ConnectTimeout. On timeout the
// client keeps retrying in the background; later drops reconnect the same
// way.
func (b *Bridge) Connect() error {
	tok := b.client.Connect()
	if !tok.WaitTimeout(ConnectTimeout) {
		return errors.New("mqtt: connect timeout")
	}
	return errors.Wrap(tok.Error(), "mqtt: connect")
}

// Close announces the bridge offline and disconnects.
func (b *Bridge) Close() {
	if b.client.IsConnected() {
		tok := b.client.Publish(b.bridgeTopic(), 0, true, status.Offline)
		tok.WaitTimeout(time.Second)
	}
	// also stops a pending connect retry loop
	b.client.Disconnect(250)
}

// Publish implements poller.Publisher.
func (b *Bridge) Publish(r poller.Report) {
	for _, d := range r.Devices {
		name := d.State.Name

		payload, err := json.Marshal(d.State)
		if err != nil {
			b.log.WithField("device", name).Errorf("marshal state: %v", err)
			continue
		}

		b.send(StateTopic(b.cfg.Prefix, name), payload)
		b.send(AvailabilityTopic(b.cfg.Prefix, name), []byte(status.Availability(d.Status.Health)))
	}
}

func (b *Bridge) publishRetained(topic string, payload []byte) {
	tok := b.client.Publish(topic, 0, true, payload)
	go func() {
		if tok.WaitTimeout(ConnectTimeout) && tok.Error() != nil {
			b.log.Warnf("publish %s: %v", topic, tok.Error())
		}
	}()
}

func (b *Bridge) handleSet(_ paho.Client, msg paho.Message) {
	device, attr, ok := ParseSetTopic(b.cfg.Prefix, msg.Topic())
	if !ok {
		b.log.Debugf("ignored topic %s", msg.Topic())
		return
	}

	b.mu.RLock()
	s := b.routes[device]
	b.mu.RUnlock()

	if s == nil {
		b.log.Warnf("command for unknown device %s", device)
		return
	}

	payload := string(msg.Payload())
	b.log.WithField("device", device).Infof("received %s=%q", attr, payload)

	if err := s.Submit(poller.Command{Device: device, Attr: attr, Payload: payload}); err != nil {
		b.log.WithField("device", device).Errorf("submit %s: %v", attr, err)
	}
}

func (b *Bridge) bridgeTopic() string {
	return b.cfg.Prefix + "/bridge/availability"
}

func StateTopic(prefix, device string) string {
	return prefix + "/" + device + "/state"
}

func AvailabilityTopic(prefix, device string) string {
	return prefix + "/" + device + "/availability"
}

// ParseSetTopic splits <prefix>/<device>/set/<attr>.
func ParseSetTopic(prefix, topic string) (device string, attr poller.Attr, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], poller.Attr(parts[2]), true
}
