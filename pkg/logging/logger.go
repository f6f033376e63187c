// Package logging configures structured logging with zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// DefaultService is the service field of DefaultConfig.
const DefaultService = "batchhttp"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is added to every entry when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Output:  os.Stderr,
		Service: DefaultService,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	level, _ := ParseLevel(string(cfg.Level))
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to
// info and report false.
func ParseLevel(level string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForBatch returns l with the fields every entry of one batch run carries.
func ForBatch(l zerolog.Logger, batchID, poolID string, size int) zerolog.Logger {
	return l.With().
		Str("batch_id", batchID).
		Str("pool_id", poolID).
		Int("size", size).
		Logger()
}

// FromContext returns the logger attached with zerolog's WithContext, or
// fallback when ctx carries none.
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	// zerolog.Ctx hands back a disabled logger when nothing is attached.
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return fallback
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Pool open/close, slot waits
//   - Per-request success (status, attempts)
//   - Cancelled requests after a sibling failed
//
// Info: Normal operation events
//   - Batch completed (size, duration)
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts (reason, delay)
//   - Ignored configuration values (unusable base URL)
//
// Error: Error conditions requiring attention
//   - Fatal request outcomes
//   - Batch failed
//   - Store write errors
//
// Context Fields:
//   - component: Emitting package (batch-client, pool, batchfetch)
//   - batch_id: Batch identifier, also the store key segment (ForBatch)
//   - pool_id: Pool identifier (ForBatch)
//   - size: Requests in the batch (ForBatch)
//   - name: Request name within the batch
//   - url: Request URL with credentials redacted
//   - attempt / attempts: Round trips so far
//   - reason: Retry reason (status code or transport error kind)
//   - error_class: Error classification (client, rejected, network, transport, ...)
