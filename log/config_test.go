package log

import (
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Level
	}{
		{"trace", "trace", LevelTrace},
		{"trace uppercase", "TRACE", LevelTrace},
		{"debug", "debug", LevelDebug},
		{"info", "info", LevelInfo},
		{"warn", "warn", LevelWarn},
		{"error", "error", LevelError},
		{"mixed case", "Warn", LevelWarn},
		{"unknown falls back", "verbose", DefaultLevel},
		{"empty falls back", "", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelTrace, "trace"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLevels_RoundTrip(t *testing.T) {
	for name := range Levels() {
		if got := ParseLevel(name).String(); got != name {
			t.Errorf("level %q round-tripped to %q", name, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Format
	}{
		{"json", "json", FormatJSON},
		{"json uppercase", "JSON", FormatJSON},
		{"json padded", "  json  ", FormatJSON},
		{"text", "text", FormatText},
		{"unknown falls back", "yaml", DefaultFormat},
		{"empty falls back", "", DefaultFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("expected format %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseTimeLayout(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"rfc3339", "RFC3339", time.RFC3339},
		{"rfc3339 lowercase", "rfc3339", time.RFC3339},
		{"rfc3339 nano", "RFC3339Nano", time.RFC3339Nano},
		{"stamp milli hyphenated", "stamp-milli", time.StampMilli},
		{"stamp milli underscored", "stamp_milli", time.StampMilli},
		{"kitchen", "kitchen", time.Kitchen},
		{"date only", "DateOnly", time.DateOnly},
		{"custom layout passes through", "2006-01-02 15:04", "2006-01-02 15:04"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTimeLayout(tt.input); got != tt.expected {
				t.Errorf("expected layout %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestConfig_WithLevel_SetsLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected Level
	}{
		{"trace", LevelTrace, LevelTrace},
		{"debug", LevelDebug, LevelDebug},
		{"info", LevelInfo, LevelInfo},
		{"warn", LevelWarn, LevelWarn},
		{"error", LevelError, LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config{}
			result := WithLevel(tt.level)(c)

			if result.level != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, result.level)
			}
		})
	}
}

func TestConfig_WithFormat_SetsFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected Format
	}{
		{"json", FormatJSON, FormatJSON},
		{"text", FormatText, FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config{}
			result := WithFormat(tt.format)(c)

			if result.format != tt.expected {
				t.Errorf("expected format %v, got %v", tt.expected, result.format)
			}
		})
	}
}

func TestConfig_WithCaller_SetsCaller(t *testing.T) {
	tests := []struct {
		name     string
		enable   bool
		expected bool
	}{
		{"enabled", true, true},
		{"disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config{}
			result := WithCaller(tt.enable)(c)

			if result.caller != tt.expected {
				t.Errorf("expected caller %v, got %v", tt.expected, result.caller)
			}
		})
	}
}

func TestMakeConfig_Defaults(t *testing.T) {
	c := makeConfig(nil)

	if c.level != DefaultLevel {
		t.Errorf("expected default level %v, got %v", DefaultLevel, c.level)
	}

	if c.format != DefaultFormat {
		t.Errorf("expected default format %v, got %v", DefaultFormat, c.format)
	}

	if c.timeLayout != DefaultTimeLayout {
		t.Errorf(
			"expected default time layout %q, got %q",
			DefaultTimeLayout,
			c.timeLayout,
		)
	}

	if !c.pretty {
		t.Error("expected pretty output enabled by default")
	}

	if c.output == nil {
		t.Error("expected nil writer to be replaced, got nil output")
	}
}
