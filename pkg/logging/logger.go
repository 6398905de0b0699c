package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const appName = "enviro-to-mqtt"

// New builds the process logger. Format "text" gives colored tint output for
// a terminal, "json" gives one object per line for log collectors.
func New(level, format string, w io.Writer, version string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h := tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			AddSource:  lvl == slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName), nil
	case "json":
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
		return slog.New(h).With("app", appName, "version", version), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (allowed: text, json)", format)
	}
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}
