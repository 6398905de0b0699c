// Package device assembles the sensor source and display for the mode the
// process runs in: the real board over I2C, or a random source with a
// terminal window standing in for the panel.
package device

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ericogr/enviro-to-mqtt/pkg/config"
	"github.com/ericogr/enviro-to-mqtt/pkg/display"
	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Rig is the opened hardware (or its substitute) plus the pacing that goes
// with it.
type Rig struct {
	Mode   string
	Source sensor.Source
	Screen *display.Shared
	// Delay is slept after each render; Wait is spent waiting for a key.
	Delay time.Duration
	Wait  time.Duration

	bus i2c.BusCloser
}

type rigFunc func(cfg config.Config, logger *slog.Logger) (*Rig, error)

// Open builds the rig for cfg.Mode. In auto mode a failed hardware probe
// falls back to the substitute. windowOpts are passed to the substitute
// window's program.
func Open(cfg config.Config, logger *slog.Logger, windowOpts ...tea.ProgramOption) (*Rig, error) {
	substitute := func(cfg config.Config, logger *slog.Logger) (*Rig, error) {
		return openSubstitute(cfg, logger, windowOpts...)
	}
	return open(cfg, logger, openHardware, substitute)
}

func open(cfg config.Config, logger *slog.Logger, hardware, substitute rigFunc) (*Rig, error) {
	switch cfg.Mode {
	case config.ModeHardware:
		return hardware(cfg, logger)
	case config.ModeSubstitute:
		return substitute(cfg, logger)
	case config.ModeAuto, "":
		rig, err := hardware(cfg, logger)
		if err == nil {
			return rig, nil
		}
		logger.Warn("hardware not available, using substitute", "error", err)
		return substitute(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func openHardware(cfg config.Config, logger *slog.Logger) (*Rig, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}
	board, err := sensor.NewBoard(bus, cfg, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}
	bg, fg, err := colors(cfg.Display)
	if err != nil {
		board.Close()
		bus.Close()
		return nil, err
	}
	oled, err := display.NewOLED(bus, cfg.Display.Width, cfg.Display.Height, bg, fg)
	if err != nil {
		board.Close()
		bus.Close()
		return nil, err
	}
	logger.Info("hardware rig ready", "bus", bus.String())
	return &Rig{
		Mode:   config.ModeHardware,
		Source: board,
		Screen: display.NewShared(oled),
		Delay:  cfg.UploadDelay,
		bus:    bus,
	}, nil
}

func openSubstitute(cfg config.Config, logger *slog.Logger, windowOpts ...tea.ProgramOption) (*Rig, error) {
	bg, fg, err := colors(cfg.Display)
	if err != nil {
		return nil, err
	}
	window := display.NewVirtual(cfg.Display.Width, cfg.Display.Height, cfg.Display.Title, bg, fg, windowOpts...)
	logger.Info("substitute rig ready", "width", cfg.Display.Width, "height", cfg.Display.Height)
	return &Rig{
		Mode:   config.ModeSubstitute,
		Source: sensor.NewFakeSensor(nil),
		Screen: display.NewShared(window),
		Wait:   cfg.DisplayDuration,
	}, nil
}

func colors(d config.DisplayConfig) (color.Color, color.Color, error) {
	bg, err := display.ParseColor(d.Background)
	if err != nil {
		return nil, nil, fmt.Errorf("display background: %w", err)
	}
	fg, err := display.ParseColor(d.Foreground)
	if err != nil {
		return nil, nil, fmt.Errorf("display foreground: %w", err)
	}
	return bg, fg, nil
}

// Close releases the display, the sensors and the bus.
func (r *Rig) Close() error {
	var errs []error
	if r.Screen != nil {
		errs = append(errs, r.Screen.Close())
	}
	if r.Source != nil {
		errs = append(errs, r.Source.Close())
	}
	if r.bus != nil {
		errs = append(errs, r.bus.Close())
	}
	return errors.Join(errs...)
}
