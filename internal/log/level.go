package log

import (
	"context"
	"log/slog"
)

// LevelFatal marks conditions that stop the crawl, such as the throttle
// circuit breaker. It sorts above slog.LevelError.
const LevelFatal = slog.Level(12)

// Fatal logs msg at LevelFatal. Unlike log.Fatal it does not exit; the
// caller still has to checkpoint and return its error.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFatal, msg, args...)
}

// handlerOptions returns the shared handler options.
// verbose lowers the level from Info to Debug.
func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
}

// replaceLevel renders LevelFatal as "FATAL" instead of "ERROR+4".
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelFatal {
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
