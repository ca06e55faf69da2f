package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestError_SentinelIdentity(t *testing.T) {
	derived := ErrResolve.
		With(slog.String("variable", "port")).
		WithPosition(Position{Line: 3, Column: 7})

	if !errors.Is(derived, ErrResolve) {
		t.Error("derived error should match its sentinel")
	}

	if errors.Is(derived, ErrBuild) {
		t.Error("derived error should not match other sentinels")
	}
}

func TestError_WrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := ErrReadInput.Wrap(cause)

	if !errors.Is(wrapped, ErrReadInput) {
		t.Error("wrapped error should match its sentinel")
	}

	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should match its cause")
	}

	if errors.Unwrap(wrapped) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_MessageIncludesAttrs(t *testing.T) {
	err := ErrValidate.
		With(slog.String("section", "backend")).
		With(slog.String("reason", "duplicate section name"))

	msg := err.Error()

	for _, want := range []string{
		"invalid configuration",
		"section=backend",
		"reason=duplicate section name",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message %q", want, msg)
		}
	}
}

func TestWrapError(t *testing.T) {
	stdErr := errors.New("plain")
	wrapped := WrapError(stdErr)

	if errors.Unwrap(wrapped) != stdErr {
		t.Error("WrapError should wrap a plain error")
	}

	// Wrapping an existing *Error returns it unchanged.
	existing := ErrBuild.With(slog.String("directive", "bind"))
	if WrapError(fmt.Errorf("outer: %w", existing)) != existing {
		t.Error("WrapError should unwrap to the existing *Error")
	}
}

func TestWarning_String(t *testing.T) {
	tests := []struct {
		name string
		warn Warning
		want string
	}{
		{
			name: "with position",
			warn: Warning{
				Rule: "weight-range",
				Msg:  "server s1 weight must be between 0 and 256",
				Pos:  Position{Line: 9, Column: 5},
			},
			want: "9:5: server s1 weight must be between 0 and 256 [weight-range]",
		},
		{
			name: "without position",
			warn: Warning{Rule: "empty-backend", Msg: "no servers"},
			want: "no servers [empty-backend]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.warn.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSyntaxError_Message(t *testing.T) {
	err := &SyntaxError{
		Pos:      Position{Line: 2, Column: 11},
		Msg:      "unexpected integer",
		Expected: []string{"identifier", "'}'"},
	}

	msg := err.Error()

	for _, want := range []string{
		"line 2", "column 11", "unexpected integer", "expected identifier, '}'",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message %q", want, msg)
		}
	}
}

func TestSyntaxError_SnippetRequiresSource(t *testing.T) {
	err := &SyntaxError{Pos: Position{Line: 1, Column: 1}, Msg: "x"}

	if got := err.Snippet(); got != "" {
		t.Errorf("expected empty snippet without source, got %q", got)
	}
}
