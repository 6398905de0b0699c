package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ericogr/enviro-to-mqtt/pkg/cloud"
	"github.com/ericogr/enviro-to-mqtt/pkg/config"
	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultDeviceID = "enviro-device"
	readRetryDelay  = 500 * time.Millisecond
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaLink writes readings to the telemetry topic keyed by device id and
// consumes the command topic on its own goroutine.
type KafkaLink struct {
	writer messageWriter
	reader messageReader
	key    []byte
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.RWMutex
	handler cloud.MessageHandler
}

func NewKafka(cfg config.KafkaConfig, logger *slog.Logger) (cloud.Link, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = DefaultDeviceID
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.TelemetryTopic,
		Balancer: &kafka.Hash{},
	}
	var r messageReader
	if cfg.CommandTopic != "" {
		groupID := cfg.GroupID
		if groupID == "" {
			groupID = "enviro-" + cfg.DeviceID
		}
		r = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.CommandTopic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	logger.Info("kafka link ready", "brokers", cfg.Brokers, "telemetry_topic", cfg.TelemetryTopic, "command_topic", cfg.CommandTopic)
	return newLink(w, r, cfg.DeviceID, logger), nil
}

func newLink(w messageWriter, r messageReader, deviceID string, logger *slog.Logger) *KafkaLink {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaLink{writer: w, reader: r, key: []byte(deviceID), logger: logger, ctx: ctx, cancel: cancel}
}

func (k *KafkaLink) Enabled() bool { return true }

func (k *KafkaLink) Publish(ctx context.Context, r sensor.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: k.key, Value: b, Time: ts}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	k.logger.Debug("published reading", "key", string(k.key), "bytes", len(b))
	return nil
}

// OnMessage sets the command handler and starts consuming on first use.
func (k *KafkaLink) OnMessage(h cloud.MessageHandler) {
	k.mu.Lock()
	k.handler = h
	k.mu.Unlock()
	if k.reader == nil {
		return
	}
	k.once.Do(func() {
		k.wg.Add(1)
		go k.readLoop()
	})
}

func (k *KafkaLink) readLoop() {
	defer k.wg.Done()
	for {
		m, err := k.reader.ReadMessage(k.ctx)
		if err != nil {
			if k.ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			k.logger.Warn("kafka read error", "error", err)
			select {
			case <-k.ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}
		k.logger.Debug("received command message", "topic", m.Topic, "size", len(m.Value))
		k.mu.RLock()
		h := k.handler
		k.mu.RUnlock()
		if h != nil {
			h(m.Value)
		}
	}
}

func (k *KafkaLink) Close() error {
	k.cancel()
	k.wg.Wait()
	var errs []error
	if k.reader != nil {
		if err := k.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader: %w", err))
		}
	}
	if err := k.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	return errors.Join(errs...)
}
