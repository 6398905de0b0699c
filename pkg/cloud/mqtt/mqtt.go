package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/enviro-to-mqtt/pkg/cloud"
	"github.com/ericogr/enviro-to-mqtt/pkg/config"
	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
)

const (
	DefaultClientID        = "enviro-device"
	DefaultConnectAttempts = 5
	telemetryTopicFmt      = "devices/%s/events"
	commandTopicFmt        = "devices/%s/commands/#"
	connectRetryDelay      = 2 * time.Second
	disconnectQuiesceMs    = 250
	// discovery payload keys/values
	keyName               = "name"
	keyStateTopic         = "state_topic"
	keyUnitOfMeasurement  = "unit_of_measurement"
	keyDeviceClass        = "device_class"
	keyStateClass         = "state_class"
	keyValueTemplate      = "value_template"
	keyUniqueID           = "unique_id"
	stateClassMeasurement = "measurement"
)

type fieldMeta struct {
	unit        string
	deviceClass string
}

var discoveryFields = map[string]fieldMeta{
	sensor.Temperature:  {"°C", "temperature"},
	sensor.Humidity:     {"%", "humidity"},
	sensor.AmbientLight: {"lx", "illuminance"},
	sensor.Pressure:     {"kPa", "pressure"},
}

// MQTTLink publishes readings as JSON and delivers command messages from
// the command topic. The subscription is renewed on every reconnect.
type MQTTLink struct {
	client         mqtt.Client
	cfg            config.MQTTConfig
	telemetryTopic string
	commandTopic   string
	logger         *slog.Logger

	mu      sync.RWMutex
	handler cloud.MessageHandler
}

// NewMQTT connects to the broker, retrying up to cfg.ConnectAttempts times.
func NewMQTT(ctx context.Context, cfg config.MQTTConfig, logger *slog.Logger) (cloud.Link, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	m := newLink(nil, cfg, logger)

	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "server", cfg.Server, "client_id", cfg.ClientID)
		m.subscribe()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	m.client = mqtt.NewClient(opts)

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	err := retry.Do(
		func() error {
			token := m.client.Connect()
			token.Wait()
			return token.Error()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(connectRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("mqtt connect failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	if cfg.DiscoveryPrefix != "" {
		m.publishDiscovery()
	}
	return m, nil
}

func newLink(client mqtt.Client, cfg config.MQTTConfig, logger *slog.Logger) *MQTTLink {
	m := &MQTTLink{
		client:         client,
		cfg:            cfg,
		telemetryTopic: cfg.TelemetryTopic,
		commandTopic:   cfg.CommandTopic,
		logger:         logger,
	}
	if m.telemetryTopic == "" {
		m.telemetryTopic = fmt.Sprintf(telemetryTopicFmt, cfg.ClientID)
	}
	if m.commandTopic == "" {
		m.commandTopic = fmt.Sprintf(commandTopicFmt, cfg.ClientID)
	}
	return m
}

func (m *MQTTLink) Enabled() bool { return true }

// Publish sends the raw reading as JSON to the telemetry topic.
func (m *MQTTLink) Publish(ctx context.Context, r sensor.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	token := m.client.Publish(m.telemetryTopic, m.cfg.QoS, false, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.telemetryTopic, err)
	}
	m.logger.Debug("published reading", "topic", m.telemetryTopic, "bytes", len(b))
	return nil
}

func (m *MQTTLink) OnMessage(h cloud.MessageHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
	if m.client.IsConnected() {
		m.subscribe()
	}
}

func (m *MQTTLink) subscribe() {
	m.mu.RLock()
	h := m.handler
	m.mu.RUnlock()
	if h == nil {
		return
	}
	token := m.client.Subscribe(m.commandTopic, m.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		m.dispatch(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		m.logger.Error("mqtt subscribe failed", "topic", m.commandTopic, "error", err)
		return
	}
	m.logger.Info("subscribed to command topic", "topic", m.commandTopic, "qos", m.cfg.QoS)
}

func (m *MQTTLink) dispatch(topic string, payload []byte) {
	m.logger.Debug("received command message", "topic", topic, "size", len(payload))
	m.mu.RLock()
	h := m.handler
	m.mu.RUnlock()
	if h != nil {
		h(payload)
	}
}

func (m *MQTTLink) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesceMs)
		m.logger.Info("mqtt disconnected")
	}
	return nil
}

// PublishRaw publishes a raw payload to the given topic. The caller can set the
// retain flag which is useful for discovery messages.
func (m *MQTTLink) PublishRaw(topic string, payload []byte, retained bool) error {
	if m.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	token := m.client.Publish(topic, m.cfg.QoS, retained, payload)
	token.Wait()
	return token.Error()
}

// publishDiscovery announces one Home Assistant sensor per reading field.
func (m *MQTTLink) publishDiscovery() {
	for _, name := range sensor.Names {
		uid := discoveryUniqueID(m.cfg, name)
		topic := fmt.Sprintf("%s/sensor/%s/config", m.cfg.DiscoveryPrefix, uid)
		payload := baseDiscoveryPayload(discoveryName(m.cfg, name), m.telemetryTopic, uid, name)
		b, err := json.Marshal(payload)
		if err != nil {
			m.logger.Error("mqtt discovery marshal error", "field", name, "error", err)
			continue
		}
		if err := m.PublishRaw(topic, b, true); err != nil {
			m.logger.Error("mqtt discovery publish error", "topic", topic, "error", err)
		}
	}
}

// helper: build a human-friendly discovery name for one field
func discoveryName(cfg config.MQTTConfig, field string) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("Enviro %s", cfg.ClientID)
	}
	return fmt.Sprintf("%s %s", name, field)
}

func discoveryUniqueID(cfg config.MQTTConfig, field string) string {
	return fmt.Sprintf("%s_%s", cfg.ClientID, field)
}

// helper: discovery payload for one field of the shared telemetry topic
func baseDiscoveryPayload(name, stateTopic, uniqueID, field string) map[string]interface{} {
	meta := discoveryFields[field]
	return map[string]interface{}{
		keyName:              name,
		keyStateTopic:        stateTopic,
		keyUnitOfMeasurement: meta.unit,
		keyDeviceClass:       meta.deviceClass,
		keyStateClass:        stateClassMeasurement,
		keyValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", field),
		keyUniqueID:          uniqueID,
	}
}
