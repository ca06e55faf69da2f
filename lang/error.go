package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values). Each pipeline stage fails with one
// of these, carrying structured attributes that name the offending
// directive, identifier, or expression.
var (
	ErrReadInput        = NewError("failed to read input")
	ErrBuild            = NewError("invalid directive")
	ErrDuplicateSection = NewError("duplicate section")
	ErrResolve          = NewError("resolution failed")
	ErrExprCompile      = NewError("expression compilation failed")
	ErrExprEvaluate     = NewError("expression evaluation failed")
	ErrEnvNotSet        = NewError("environment variable not set")
	ErrLoopBounds       = NewError("invalid loop bounds")
	ErrValidate         = NewError("invalid configuration")
	ErrUnresolvedValue  = NewError("unresolved value")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	msg := strings.Join(part, ": ")

	// Append the most useful attributes so plain %v output stays
	// diagnosable without a structured handler.
	for _, a := range e.attrs {
		msg += " " + a.Key + "=" + a.Value.String()
	}

	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether the target is the same sentinel this error was
// derived from. Derived errors share the sentinel's message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.msg == t.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// WithPosition attaches a source position attribute.
func (e *Error) WithPosition(pos Position) *Error {
	return e.With(slog.String("position", pos.String()))
}

// SyntaxError is a parse-stage failure. It carries the source location,
// a description of what was expected, and (once the parser attaches the
// source) renders a snippet with a caret marker.
type SyntaxError struct {
	Pos      Position
	Msg      string
	Expected []string // expected token descriptions, if known
	Source   string   // original input, attached by the parser
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var buf strings.Builder

	buf.WriteString("syntax error at line ")
	buf.WriteString(strconv.Itoa(e.Pos.Line))
	buf.WriteString(", column ")
	buf.WriteString(strconv.Itoa(e.Pos.Column))

	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}

	if len(e.Expected) > 0 {
		buf.WriteString("; expected ")
		buf.WriteString(strings.Join(e.Expected, ", "))
	}

	return buf.String()
}

// Snippet renders the offending source line with a caret marker under the
// error column. Empty when the source is not attached.
func (e *SyntaxError) Snippet() string {
	if e.Source == "" || e.Pos.Line <= 0 {
		return ""
	}

	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line > len(lines) {
		return ""
	}

	line := lines[e.Pos.Line-1]

	var src strings.Builder

	src.WriteString("  ")
	src.WriteString(strconv.Itoa(e.Pos.Line))
	src.WriteString(" | ")
	src.WriteString(line)
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(strconv.Itoa(e.Pos.Line))+5)
	if e.Pos.Column > 0 {
		padding += strings.Repeat(" ", e.Pos.Column-1)
	}

	src.WriteString(padding + "^\n")

	return src.String()
}

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("error", "syntax error"),
		slog.String("position", e.Pos.String()),
	}

	if e.Msg != "" {
		attrs = append(attrs, slog.String("detail", e.Msg))
	}

	if len(e.Expected) > 0 {
		attrs = append(attrs,
			slog.String("expected", strings.Join(e.Expected, ", ")))
	}

	return slog.GroupValue(attrs...)
}

// Warning is a non-fatal semantic finding attached to a successful
// compilation. Rules are additive and independent: one rule's findings
// never suppress another's.
type Warning struct {
	Rule string
	Msg  string
	Pos  Position
}

// String renders the warning for plain-text surfaces.
func (w Warning) String() string {
	if w.Pos.Line > 0 {
		return w.Pos.String() + ": " + w.Msg + " [" + w.Rule + "]"
	}

	return w.Msg + " [" + w.Rule + "]"
}

// LogValue implements slog.LogValuer.
func (w Warning) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("rule", w.Rule),
		slog.String("warning", w.Msg),
		slog.String("position", w.Pos.String()),
	)
}
