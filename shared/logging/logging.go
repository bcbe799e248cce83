package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
)

// New creates the service logger: text output for local runs, JSON everywhere else
func New(serviceName, env string) *slog.Logger {
	return NewWithWriter(os.Stdout, serviceName, env)
}

// NewWithWriter creates the service logger writing to w
func NewWithWriter(w io.Writer, serviceName, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if env == "" || env == "local" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}

var watermillLevels = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// Watermill adapts the service logger for watermill publishers and subscribers
func Watermill(logger *slog.Logger) watermill.LoggerAdapter {
	if logger == nil {
		return watermill.NopLogger{}
	}
	return watermill.NewSlogLoggerWithLevelMapping(logger, watermillLevels)
}
