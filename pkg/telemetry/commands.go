package telemetry

import (
	"context"
	"image"
	"log/slog"
)

type renderer interface {
	Render(text string, at image.Point) error
}

// Commands moves inbound command payloads from the broker's delivery
// goroutine onto the display. It holds at most one pending payload: a newer
// message replaces one that has not been shown yet.
type Commands struct {
	screen  renderer
	logger  *slog.Logger
	pending chan []byte
}

func NewCommands(screen renderer, logger *slog.Logger) *Commands {
	return &Commands{screen: screen, logger: logger, pending: make(chan []byte, 1)}
}

// Handle queues payload without blocking. It is safe to call from any
// goroutine.
func (c *Commands) Handle(payload []byte) {
	p := append([]byte(nil), payload...)
	for {
		select {
		case c.pending <- p:
			return
		default:
		}
		select {
		case old := <-c.pending:
			c.logger.Debug("dropping unshown command message", "size", len(old))
		default:
		}
	}
}

// Run shows queued payloads until ctx is done.
func (c *Commands) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-c.pending:
			c.Apply(p)
		}
	}
}

// Apply decodes payload as text and draws it at the origin, replacing
// whatever is on the display.
func (c *Commands) Apply(payload []byte) {
	text := string(payload)
	c.logger.Info("received command message", "payload", text)
	if err := c.screen.Render(text, image.Point{}); err != nil {
		c.logger.Error("command render failed", "error", err)
	}
}
