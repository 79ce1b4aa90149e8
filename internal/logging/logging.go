// Package logging builds the process logger: slog with a tint or JSON console
// handler, optionally fanned out to Fluent Bit.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"

	"real-estate-site/internal/config"
)

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewConsoleHandler returns the stdout handler described by cfg.
func NewConsoleHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	level := ParseLevel(cfg.Level)

	switch {
	case cfg.Format == "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case cfg.Color:
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
}

// Setup builds the process logger from cfg. The returned close function
// flushes and closes the Fluent Bit connection when one was opened.
func Setup(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	console := NewConsoleHandler(os.Stdout, cfg)
	if cfg.FluentHost == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		Async:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to fluent bit at %s:%d: %w", cfg.FluentHost, cfg.FluentPort, err)
	}

	handler := NewMultiHandler(console, NewFluentHandler(client, cfg.FluentTag, ParseLevel(cfg.Level)))
	return slog.New(handler), client.Close, nil
}
