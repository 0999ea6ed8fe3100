// Package bridge reads raw capability descriptors from a Zigbee2MQTT-style
// bridge over MQTT. The bridge publishes its full device list as a retained
// message, so a fresh subscription immediately yields the current snapshot.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Config configures the MQTT descriptor source.
type Config struct {
	// BrokerURL is the MQTT broker address, e.g. "tcp://localhost:1883".
	BrokerURL string
	// ClientID is the MQTT client identifier.
	ClientID string
	// Username and Password are the optional broker credentials.
	Username string
	Password string
	// TopicPrefix is the bridge topic prefix, e.g. "zigbee2mqtt".
	TopicPrefix string
	// ConnectTimeout bounds the initial connect.
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "dwellsense-bridge",
		TopicPrefix:    "zigbee2mqtt",
		ConnectTimeout: 10 * time.Second,
	}
}

// bridgeDevice is one entry of the bridge's device list. Only the definition
// matters here; it carries the vendor descriptor the parser consumes.
type bridgeDevice struct {
	Type       string          `json:"type"`
	Definition json.RawMessage `json:"definition"`
}

// MQTTSource is an MQTT implementation of capability.DescriptorSource.
type MQTTSource struct {
	client mqtt.Client
	topic  string

	mu     sync.RWMutex
	latest []capability.RawDescriptor
	ready  chan struct{}
	once   sync.Once
}

// NewMQTTSource connects to the broker and subscribes to the bridge's
// device list topic.
func NewMQTTSource(cfg Config) (*MQTTSource, error) {
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = DefaultConfig().BrokerURL
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultConfig().TopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultConfig().ClientID
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	s := &MQTTSource{
		topic: cfg.TopicPrefix + "/bridge/devices",
		ready: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout)

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connecting to broker %s: timeout", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", cfg.BrokerURL, err)
	}

	sub := s.client.Subscribe(s.topic, 1, s.onDeviceList)
	if !sub.WaitTimeout(cfg.ConnectTimeout) {
		s.client.Disconnect(250)
		return nil, fmt.Errorf("subscribing to %s: timeout", s.topic)
	}
	if err := sub.Error(); err != nil {
		s.client.Disconnect(250)
		return nil, fmt.Errorf("subscribing to %s: %w", s.topic, err)
	}

	return s, nil
}

func (s *MQTTSource) onDeviceList(_ mqtt.Client, msg mqtt.Message) {
	var devices []bridgeDevice
	if err := json.Unmarshal(msg.Payload(), &devices); err != nil {
		logging.Warn().
			Add(logging.Component("bridge")).
			Add(logging.Str("topic", msg.Topic())).
			Add(logging.ErrorField(err)).
			Msg("malformed device list, keeping previous snapshot")
		return
	}

	descriptors := make([]capability.RawDescriptor, 0, len(devices))
	for _, d := range devices {
		// Coordinator entries carry no definition.
		if len(d.Definition) == 0 || string(d.Definition) == "null" {
			continue
		}
		descriptors = append(descriptors, capability.RawDescriptor(d.Definition))
	}

	s.mu.Lock()
	s.latest = descriptors
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })

	logging.Debug().
		Add(logging.Component("bridge")).
		Add(logging.Count("descriptors", len(descriptors))).
		Msg("device list snapshot updated")
}

// Snapshot returns the current set of raw descriptors, waiting for the
// retained device list if none has arrived yet.
func (s *MQTTSource) Snapshot(ctx context.Context) ([]capability.RawDescriptor, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for device list on %s: %w", s.topic, ctx.Err())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]capability.RawDescriptor, len(s.latest))
	copy(out, s.latest)
	return out, nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	s.client.Disconnect(250)
}

var _ capability.DescriptorSource = (*MQTTSource)(nil)
