// Package logger builds this service's slog logger. Grounded on the
// teacher's pkg/logger: same level-parsing shape, extended with the
// handler selection spec.md §6 needs — Cloud Logging expects JSON
// records with message/severity/timestamp keys, not slog's Go-flavored
// defaults, whenever this binary runs on Cloud Run or Cloud Functions.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a slog logger configured with the provided level. Locally
// it renders human-readable text; on Cloud Run or Cloud Functions
// (detected the same way gcloud's own runtime does, via K_SERVICE /
// FUNCTION_TARGET) it switches to JSON with Cloud Logging's expected
// field names, so internal/telemetry.ErrorLog's "severity" and
// "resource.type" attributes land where the ingestion pipeline looks
// for them without any call site changing.
func New(level string) *slog.Logger {
	lvl := parseLevel(level)
	return slog.New(newHandler(lvl))
}

func newHandler(lvl slog.Level) slog.Handler {
	if !runningOnCloud() {
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceForCloudLogging,
	})
}

func runningOnCloud() bool {
	return os.Getenv("K_SERVICE") != "" || os.Getenv("FUNCTION_TARGET") != ""
}

// replaceForCloudLogging renames slog's built-in keys to the ones
// Cloud Logging's structured payload parser recognizes.
func replaceForCloudLogging(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.MessageKey:
		a.Key = "message"
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "severity"
	}
	return a
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
