package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
	if cfg.Service != DefaultService {
		t.Errorf("Expected default service %q, got %q", DefaultService, cfg.Service)
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		log   func(zerolog.Logger, string)
	}{
		{"info_level", LevelInfo, func(l zerolog.Logger, m string) { l.Info().Msg(m) }},
		{"debug_level", LevelDebug, func(l zerolog.Logger, m string) { l.Debug().Msg(m) }},
		{"warn_level", LevelWarn, func(l zerolog.Logger, m string) { l.Warn().Msg(m) }},
		{"error_level", LevelError, func(l zerolog.Logger, m string) { l.Error().Msg(m) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			tt.log(logger, "message at "+string(tt.level))

			if !strings.Contains(buf.String(), "message at "+string(tt.level)) {
				t.Errorf("Expected output to contain the message, got %q", buf.String())
			}
		})
	}
}

func TestSetup_Service(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf, Service: "batchfetch"})
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"service":"batchfetch"`) {
		t.Errorf("Expected service field, got %q", buf.String())
	}
}

func TestSetup_Disabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelDisabled, Output: buf})
	logger.Error().Msg("hidden")

	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}

	// Restore for the tests that follow.
	Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		ok       bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{"INFO", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"off", zerolog.Disabled, true},
		{"invalid", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			if level != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v, want %v, %v", tt.input, level, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("test-component")
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test-component") {
		t.Errorf("Expected output to contain 'test-component', got %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("test")

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be included at Warn level")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be included at Warn level")
	}
}

func TestForBatch(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	l := ForBatch(base, "b-1", "p-1", 3)
	l.Info().Msg("batch done")

	for _, want := range []string{`"batch_id":"b-1"`, `"pool_id":"p-1"`, `"size":3`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected %s in %q", want, buf.String())
		}
	}
}

func TestFromContext(t *testing.T) {
	fallbackBuf := &bytes.Buffer{}
	fallback := zerolog.New(fallbackBuf)

	l := FromContext(context.Background(), fallback)
	l.Info().Msg("no batch")
	if !strings.Contains(fallbackBuf.String(), "no batch") {
		t.Error("Expected the fallback logger without an attached one")
	}

	batchBuf := &bytes.Buffer{}
	ctx := ForBatch(zerolog.New(batchBuf), "b-2", "p-2", 1).WithContext(context.Background())

	l = FromContext(ctx, fallback)
	l.Info().Msg("in batch")
	if !strings.Contains(batchBuf.String(), `"batch_id":"b-2"`) {
		t.Errorf("Expected the attached logger, got %q", batchBuf.String())
	}
	if strings.Contains(fallbackBuf.String(), "in batch") {
		t.Error("Fallback must not be used when a logger is attached")
	}
}
