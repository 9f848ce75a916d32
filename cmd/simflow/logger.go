package main

import (
	"io"
	"log/slog"

	"github.com/dusk-indust/simflow/internal/workflow"
)

// newLogger creates a slog.Logger writing to w in the given level and format.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func logAdvisories(logger *slog.Logger, notes []workflow.Advisory) {
	for _, a := range notes {
		if a.Level == workflow.AdvisoryWarn {
			logger.Warn(a.Message)
		} else {
			logger.Info(a.Message)
		}
	}
}
