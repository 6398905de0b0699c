package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ericogr/enviro-to-mqtt/pkg/cloud"
	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
)

// ConsoleLink prints published readings on stdout. It never receives
// commands.
type ConsoleLink struct{}

func NewConsole() cloud.Link { return &ConsoleLink{} }

func (c *ConsoleLink) Enabled() bool { return true }

func (c *ConsoleLink) Publish(_ context.Context, r sensor.Reading) error {
	fields := make([]string, 0, len(sensor.Names))
	for _, name := range sensor.Names {
		v := "null"
		if f, ok := r.Value(name); ok {
			v = strconv.FormatFloat(f, 'f', 2, 64)
		}
		fields = append(fields, name+"="+v)
	}
	fmt.Printf("%s %s\n", r.Timestamp.Format(time.RFC3339), strings.Join(fields, " "))
	return nil
}

func (c *ConsoleLink) OnMessage(cloud.MessageHandler) {}

func (c *ConsoleLink) Close() error { return nil }
