// Package cloud defines the broker link the telemetry loop publishes to and
// receives command messages from.
package cloud

import (
	"context"

	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
)

// MessageHandler receives the raw payload of an inbound command message.
// It is called on the transport's own delivery goroutine.
type MessageHandler func(payload []byte)

type Link interface {
	// Enabled reports whether readings should be published.
	Enabled() bool
	Publish(ctx context.Context, r sensor.Reading) error
	// OnMessage registers the handler for inbound command messages,
	// replacing any previous one.
	OnMessage(h MessageHandler)
	Close() error
}

// Opener acquires a Link. The caller owns the returned Link and must Close it.
type Opener func(ctx context.Context) (Link, error)

// Disabled is the Link used when no broker is configured.
type Disabled struct{}

func (Disabled) Enabled() bool                                { return false }
func (Disabled) Publish(context.Context, sensor.Reading) error { return nil }
func (Disabled) OnMessage(MessageHandler)                     {}
func (Disabled) Close() error                                 { return nil }
