package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// --- Unit Tests ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{input: "debug", want: zerolog.DebugLevel},
		{input: "info", want: zerolog.InfoLevel},
		{input: "", want: zerolog.InfoLevel},
		{input: "warn", want: zerolog.WarnLevel},
		{input: "warning", want: zerolog.WarnLevel},
		{input: "error", want: zerolog.ErrorLevel},
		{input: "DEBUG", want: zerolog.DebugLevel},
		{input: "nonsense", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("filtered")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing")
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.Info().Str("service", "notifications").Msg("connected")

	out := buf.String()
	if !strings.Contains(out, `"service":"notifications"`) {
		t.Errorf("output not structured JSON: %s", out)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STREAMLINE_LOG_LEVEL", "debug")
	t.Setenv("STREAMLINE_LOG_CONSOLE", "false")

	log := FromEnv()
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("GetLevel = %v, want debug", log.GetLevel())
	}
}
