package sensor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericogr/enviro-to-mqtt/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

type envSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

type lightReader interface {
	ReadVolts(channel int) (float64, error)
}

// Board is the hardware sensor source: a BME280 (or BMP280) for
// temperature, humidity and pressure plus a light sensor on an ADS1115
// channel. A chip that is not fitted leaves its values absent.
type Board struct {
	env      envSensor
	humidity bool

	light        lightReader
	lightChannel int
	lightScale   float64
	lightOffset  float64

	maxFailures int
	failures    int
	logger      *slog.Logger
	now         func() time.Time
}

// NewBoard probes the environmental chips on bus. It fails only when no
// chip answers at all.
func NewBoard(bus i2c.Bus, cfg config.Config, logger *slog.Logger) (*Board, error) {
	b := &Board{
		lightChannel: cfg.LightChannel,
		lightScale:   cfg.LightScale,
		lightOffset:  cfg.LightOffset,
		maxFailures:  cfg.SensorMaxFailures,
		logger:       logger,
		now:          time.Now,
	}

	dev, err := bmxx80.NewI2C(bus, uint16(cfg.BME280Address), &bmxx80.DefaultOpts)
	if err != nil {
		logger.Warn("environment sensor not found", "address", fmt.Sprintf("0x%02x", cfg.BME280Address), "error", err)
	} else {
		b.env = dev
		// only the BME280 variant has a humidity element
		b.humidity = strings.HasPrefix(dev.String(), "BME280")
		logger.Info("environment sensor ready", "device", dev.String(), "humidity", b.humidity)
	}

	ads := NewADS1115(bus, uint16(cfg.ADS1115Address), cfg.SampleRate)
	if _, err := ads.ReadVolts(cfg.LightChannel); err != nil {
		logger.Warn("light sensor not found", "address", fmt.Sprintf("0x%02x", cfg.ADS1115Address), "error", err)
	} else {
		b.light = ads
		logger.Info("light sensor ready", "channel", cfg.LightChannel)
	}

	if b.env == nil && b.light == nil {
		return nil, errors.New("no sensor board detected")
	}
	return b, nil
}

// Read samples every fitted chip. A chip that fails this cycle reports its
// values as absent; when all of them fail the read is a transient fault,
// escalated to fatal after maxFailures consecutive faults.
func (b *Board) Read() (Reading, error) {
	r := Reading{Timestamp: b.now()}
	var errs []error

	if b.env != nil {
		var e physic.Env
		if err := b.env.Sense(&e); err != nil {
			errs = append(errs, fmt.Errorf("environment: %w", err))
		} else {
			r.Temperature = Float(e.Temperature.Celsius())
			if b.humidity {
				r.Humidity = Float(float64(e.Humidity) / float64(physic.PercentRH))
			}
			r.Pressure = Float(float64(e.Pressure) / float64(physic.KiloPascal))
		}
	}

	if b.light != nil {
		v, err := b.light.ReadVolts(b.lightChannel)
		if err != nil {
			errs = append(errs, fmt.Errorf("light: %w", err))
		} else {
			r.AmbientLight = Float(v*b.lightScale + b.lightOffset)
		}
	}

	if len(errs) > 0 && r.Temperature == nil && r.AmbientLight == nil {
		b.failures++
		err := &Error{Op: "read", Err: errors.Join(errs...), Transient: b.failures < b.maxFailures}
		return Reading{}, err
	}
	for _, err := range errs {
		b.logger.Debug("partial sensor read", "error", err)
	}
	b.failures = 0
	return r, nil
}

func (b *Board) Close() error {
	if b.env != nil {
		return b.env.Halt()
	}
	return nil
}
