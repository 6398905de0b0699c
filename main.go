package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericogr/enviro-to-mqtt/pkg/cloud"
	"github.com/ericogr/enviro-to-mqtt/pkg/cloud/console"
	"github.com/ericogr/enviro-to-mqtt/pkg/cloud/kafka"
	"github.com/ericogr/enviro-to-mqtt/pkg/cloud/mqtt"
	"github.com/ericogr/enviro-to-mqtt/pkg/config"
	"github.com/ericogr/enviro-to-mqtt/pkg/device"
	"github.com/ericogr/enviro-to-mqtt/pkg/logging"
	"github.com/ericogr/enviro-to-mqtt/pkg/telemetry"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enviro-to-mqtt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut, version)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting", "version", version, "mode", cfg.Mode)

	rig, err := device.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer func() {
		if err := rig.Close(); err != nil {
			logger.Error("close device", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc := cfg.Cloud(rig.Mode)
	logger.Info("device ready", "mode", rig.Mode, "cloud_section", cfg.SectionFor(rig.Mode), "cloud", cc.Type, "cloud_enabled", cc.Enabled)

	err = telemetry.Run(ctx, openLink(cc, logger), rig.Source, rig.Screen, telemetry.Options{
		Delay:  rig.Delay,
		Wait:   rig.Wait,
		Logger: logger,
	})
	switch {
	case err == nil, errors.Is(err, telemetry.ErrQuit), errors.Is(err, context.Canceled):
		logger.Info("shutting down")
		return nil
	default:
		logger.Error("telemetry loop failed", "error", err)
		return err
	}
}

// openLink returns the opener for the configured broker profile. A disabled
// or missing profile yields a link that never publishes.
func openLink(cc config.CloudConfig, logger *slog.Logger) cloud.Opener {
	return func(ctx context.Context) (cloud.Link, error) {
		if !cc.Enabled {
			logger.Info("cloud disabled, readings are only displayed")
			return cloud.Disabled{}, nil
		}
		switch cc.Type {
		case config.CloudMQTT:
			if cc.MQTT == nil {
				return nil, errors.New("mqtt profile missing")
			}
			return mqtt.NewMQTT(ctx, *cc.MQTT, logger)
		case config.CloudKafka:
			if cc.Kafka == nil {
				return nil, errors.New("kafka profile missing")
			}
			return kafka.NewKafka(*cc.Kafka, logger)
		case config.CloudConsole:
			return console.NewConsole(), nil
		default:
			return nil, fmt.Errorf("unknown cloud type %q", cc.Type)
		}
	}
}
