// Package logging provides structured logging for the quasar tools.
//
// It wraps log/slog with a consistent setup: text or JSON output,
// configurable level, and component/run-scoped loggers. The pipeline core
// never reads the process-wide default; mains build a logger here and thread
// it through explicitly so the core stays independently testable.
package logging

import (
	"log/slog"
	"os"
)

// Init builds the root logger with the specified level and format. If
// jsonFormat is true, logs are emitted as JSON. The returned logger is also
// installed as the slog default for stray third-party output.
func Init(level slog.Level, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger tagged with a component name.
//
// Example:
//
//	log := logging.Component(root, "orchestrator")
//	log.Info("run started") // ... component=orchestrator msg="run started"
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

// WithRun returns a logger tagged with a run identifier. Every run (and
// every sweep task) gets its own identifier so interleaved output stays
// attributable.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}
