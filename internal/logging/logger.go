package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Configure replaces the process-wide default logger. level is one of
// "debug", "info", "warn", "error", matched case-insensitively; json
// selects JSON vs. text output.
func Configure(level string, json bool) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	defaultLogger = slog.New(handler)
}

// Named returns a logger tagged with component=name, e.g. Named("nm").
func Named(name string) *slog.Logger {
	return defaultLogger.With("component", name)
}

// FromRequest builds the structured attrs for a completed request, ready to
// be passed to a *slog.Logger's Info/Error/Warn call as a log line's args.
func FromRequest(rc *RequestContext, errCode string) []any {
	if rc == nil {
		return nil
	}
	return []any{
		"request_id", rc.RequestID,
		"op", rc.Op,
		"username", rc.Username,
		"filename", rc.Filename,
		"remote_addr", rc.RemoteAddr,
		"duration_ms", rc.DurationMs(),
		"error", errCode,
	}
}

// LogRequest emits the single structured completion line every dispatched
// request produces.
func LogRequest(ctx context.Context, log *slog.Logger, errCode string) {
	rc := FromContext(ctx)
	if errCode == "" || errCode == "SUCCESS" {
		log.Info("request completed", FromRequest(rc, errCode)...)
		return
	}
	log.Warn("request failed", FromRequest(rc, errCode)...)
}
