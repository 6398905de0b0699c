// Package telemetry runs the read, render, publish cycle of the device.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ericogr/enviro-to-mqtt/pkg/cloud"
	"github.com/ericogr/enviro-to-mqtt/pkg/display"
	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
)

// ErrQuit is returned when the operator asks the substitute window to quit.
var ErrQuit = errors.New("telemetry: quit requested")

// Screen is the display as seen by the loop. It must be safe for use by
// the loop and the command handler at the same time.
type Screen interface {
	Render(text string, at image.Point) error
	WaitKey(timeout time.Duration) display.Key
}

type Options struct {
	// Delay is slept after each render (hardware pacing).
	Delay time.Duration
	// Wait is how long the display waits for a key after each render
	// (substitute pacing).
	Wait time.Duration
	// Iterations bounds the loop; 0 runs until ctx is done or a fault.
	Iterations int
	Logger     *slog.Logger
}

// Run acquires the cloud link, then repeatedly reads src, shows the status
// on screen and publishes the reading while the link is enabled. The link is
// closed exactly once when Run returns, whatever the reason.
func Run(ctx context.Context, open cloud.Opener, src sensor.Source, screen Screen, opts Options) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	link, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open cloud link: %w", err)
	}
	defer func() {
		if cerr := link.Close(); cerr != nil {
			logger.Error("close cloud link", "error", cerr)
			if err == nil {
				err = fmt.Errorf("close cloud link: %w", cerr)
			}
		}
	}()

	cmdCtx, stop := context.WithCancel(ctx)
	cmds := NewCommands(screen, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cmds.Run(cmdCtx)
	}()
	defer func() {
		stop()
		wg.Wait()
	}()
	link.OnMessage(cmds.Handle)

	logger.Info("telemetry loop started", "publish", link.Enabled(), "delay", opts.Delay, "wait", opts.Wait)
	for i := 0; opts.Iterations == 0 || i < opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := src.Read()
		if err != nil {
			if !sensor.IsTransient(err) {
				return fmt.Errorf("read sensors: %w", err)
			}
			logger.Warn("sensor read failed, skipping cycle", "iteration", i, "error", err)
			if err := pace(ctx, screen, opts); err != nil {
				return err
			}
			continue
		}

		text := Format(r)
		if err := screen.Render(text, image.Point{}); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		logger.Debug("reading", "iteration", i, "status", text)

		if err := pace(ctx, screen, opts); err != nil {
			return err
		}

		if link.Enabled() {
			if err := link.Publish(ctx, r); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
		}
	}
	return nil
}

func pace(ctx context.Context, screen Screen, opts Options) error {
	if display.IsQuit(screen.WaitKey(opts.Wait)) {
		return ErrQuit
	}
	if opts.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
