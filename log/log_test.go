package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_ZeroValueDiscards(t *testing.T) {
	var l Logger

	// Must not panic.
	l.Info("discarded")
	l.Error("discarded", slog.String("k", "v"))
	l.Trace("discarded")

	if got := l.Level(); got != DefaultLevel {
		t.Errorf("expected default level %v, got %v", DefaultLevel, got)
	}

	if got := l.Format(); got != DefaultFormat {
		t.Errorf("expected default format %v, got %v", DefaultFormat, got)
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelDebug))
	l.Info("hello", slog.String("section", "backend"), slog.Int("count", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if record["msg"] != "hello" {
		t.Errorf("expected msg %q, got %v", "hello", record["msg"])
	}

	if record["section"] != "backend" {
		t.Errorf("expected section %q, got %v", "backend", record["section"])
	}

	if record["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", record["count"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		logs    func(Logger)
		expects []string
		omits   []string
	}{
		{
			name:  "warn drops info",
			level: LevelWarn,
			logs: func(l Logger) {
				l.Info("quiet")
				l.Warn("loud")
			},
			expects: []string{"loud"},
			omits:   []string{"quiet"},
		},
		{
			name:  "trace passes everything",
			level: LevelTrace,
			logs: func(l Logger) {
				l.Trace("fine")
				l.Debug("detail")
				l.Error("broken")
			},
			expects: []string{"fine", "detail", "broken"},
		},
		{
			name:  "default drops debug",
			level: DefaultLevel,
			logs: func(l Logger) {
				l.Debug("hidden")
				l.Info("shown")
			},
			expects: []string{"shown"},
			omits:   []string{"hidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			l := Make(&buf,
				WithFormat(FormatJSON),
				WithLevel(tt.level),
			)

			tt.logs(l)

			out := buf.String()

			for _, s := range tt.expects {
				if !strings.Contains(out, s) {
					t.Errorf("expected output to contain %q:\n%s", s, out)
				}
			}

			for _, s := range tt.omits {
				if strings.Contains(out, s) {
					t.Errorf("expected output to omit %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestLogger_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace))
	l.Trace("probe")

	if !strings.Contains(buf.String(), `"TRACE"`) {
		t.Errorf("expected TRACE level name in output:\n%s", buf.String())
	}
}

func TestLogger_Wrap_OverridesLevel(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelError))
	wrapped := l.Wrap(WithLevel(LevelDebug))

	l.Debug("dropped")
	wrapped.Debug("kept")

	out := buf.String()

	if strings.Contains(out, "dropped") {
		t.Errorf("original logger should drop debug:\n%s", out)
	}

	if !strings.Contains(out, "kept") {
		t.Errorf("wrapped logger should emit debug:\n%s", out)
	}

	if got := wrapped.Level(); got != LevelDebug {
		t.Errorf("expected wrapped level %v, got %v", LevelDebug, got)
	}
}

func TestLogger_With_AttachesAttrs(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON)).
		With(slog.String("source", "site.halc"))

	l.Info("compiled")

	if !strings.Contains(buf.String(), `"source":"site.halc"`) {
		t.Errorf("expected attached attribute in output:\n%s", buf.String())
	}
}

func TestLogger_TimeLayoutDisablesTimestamp(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithTimeLayout(""))
	l.Info("stampless")

	if strings.Contains(buf.String(), `"time"`) {
		t.Errorf("expected no time key in output:\n%s", buf.String())
	}
}

func TestDefault_ConfigUpdates(t *testing.T) {
	orig := defaultLog
	t.Cleanup(func() { defaultLog = orig })

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithFormat(FormatJSON), WithLevel(LevelDebug))
	Debug("wired")

	if !strings.Contains(buf.String(), "wired") {
		t.Errorf("expected default logger output:\n%s", buf.String())
	}

	if Default().Level() != LevelDebug {
		t.Errorf("expected default level %v, got %v",
			LevelDebug, Default().Level())
	}
}
