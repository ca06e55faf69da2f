package lang

import (
	"strconv"
	"strings"
)

// Kind identifies the type of a [Value]. The set is closed: every pass in
// the pipeline switches exhaustively over it, so adding a kind is a
// compile-time-visible change everywhere values are handled.
type Kind uint8

const (
	// KindNone is the zero Kind and marks an unset optional field.
	KindNone Kind = iota

	// KindInt is a 64-bit integer literal.
	KindInt

	// KindBool is a boolean literal.
	KindBool

	// KindString is a string literal. Before variable resolution the
	// literal may contain interpolation segments; afterwards Str holds
	// the final text.
	KindString

	// KindDuration is a duration literal such as "5s" or "100ms".
	// The source spelling is preserved verbatim in Str because the
	// target engine accepts the same unit suffixes.
	KindDuration

	// KindList is an ordered list of values.
	KindList

	// KindExpr is an unresolved ${...} expression occupying an entire
	// field. It resolves to its native type, so `port: ${base + 1}`
	// yields an integer, not a string.
	KindExpr
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindDuration:
		return "duration"
	case KindList:
		return "list"
	case KindExpr:
		return "expression"
	default:
		return "invalid"
	}
}

// Segment is one piece of an interpolated string literal. Exactly one of
// Lit or Expr is meaningful: Lit holds literal text, Expr holds the source
// of a ${...} interpolation.
type Segment struct {
	Lit    string
	Expr   string
	IsExpr bool
}

// Value is the tagged variant carried by every IR field. Which payload
// field is meaningful depends on Kind.
type Value struct {
	Kind Kind
	Int  int64
	Bool bool
	Str  string    // KindString (resolved), KindDuration (source spelling)
	Segs []Segment // KindString before resolution, nil afterwards
	List []Value
	Expr string // KindExpr source text
	Pos  Position
}

// IsSet reports whether the value holds anything at all.
func (v Value) IsSet() bool { return v.Kind != KindNone }

// IsTrue reports whether the value is the boolean true.
func (v Value) IsTrue() bool { return v.Kind == KindBool && v.Bool }

// Resolved reports whether the value contains no pending expressions or
// interpolation segments. Every value reaching the code generator must be
// resolved.
func (v Value) Resolved() bool {
	switch v.Kind {
	case KindExpr:
		return false
	case KindString:
		return v.Segs == nil
	case KindList:
		for _, e := range v.List {
			if !e.Resolved() {
				return false
			}
		}

		return true
	case KindNone, KindInt, KindBool, KindDuration:
		return true
	default:
		return true
	}
}

// AsInt returns the integer payload, reporting false for non-integers.
func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}

	return v.Int, true
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	c := v

	if v.Segs != nil {
		c.Segs = make([]Segment, len(v.Segs))
		copy(c.Segs, v.Segs)
	}

	if v.List != nil {
		c.List = make([]Value, len(v.List))
		for i, e := range v.List {
			c.List[i] = e.Clone()
		}
	}

	return c
}

// Text renders the value as it appears in generated output. Strings are
// emitted bare; callers that need conditional quoting use [Value.Param].
func (v Value) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		if v.Segs != nil {
			return v.sourceText()
		}

		return v.Str
	case KindDuration:
		return v.Str
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.Text()
		}

		return strings.Join(parts, ",")
	case KindExpr:
		return "${" + v.Expr + "}"
	case KindNone:
		return ""
	default:
		return ""
	}
}

// MarshalYAML reports the value in its native form for diagnostic dumps.
func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindNone:
		return nil, nil
	case KindInt:
		return v.Int, nil
	case KindBool:
		return v.Bool, nil
	case KindString, KindDuration:
		return v.Text(), nil
	case KindList:
		elems := make([]any, len(v.List))
		for i, e := range v.List {
			elems[i], _ = e.MarshalYAML()
		}

		return elems, nil
	case KindExpr:
		return "${" + v.Expr + "}", nil
	default:
		return nil, nil
	}
}

// Param renders the value as a directive parameter: values containing
// whitespace are double-quoted, everything else is emitted bare.
func (v Value) Param() string {
	s := v.Text()
	if strings.ContainsAny(s, " \t") {
		return strconv.Quote(s)
	}

	return s
}

// sourceText reassembles the original spelling of an unresolved string.
// Only used for diagnostics; resolved strings render from Str.
func (v Value) sourceText() string {
	var sb strings.Builder

	for _, seg := range v.Segs {
		if seg.IsExpr {
			sb.WriteString("${")
			sb.WriteString(seg.Expr)
			sb.WriteString("}")

			continue
		}

		sb.WriteString(seg.Lit)
	}

	return sb.String()
}

// intValue, boolValue, strValue, durValue, listValue, exprValue are the
// constructors used by the lexer and the resolver.

func intValue(i int64, pos Position) Value {
	return Value{Kind: KindInt, Int: i, Pos: pos}
}

func boolValue(b bool, pos Position) Value {
	return Value{Kind: KindBool, Bool: b, Pos: pos}
}

func strValue(s string, pos Position) Value {
	return Value{Kind: KindString, Str: s, Pos: pos}
}

func durValue(text string, pos Position) Value {
	return Value{Kind: KindDuration, Str: text, Pos: pos}
}

func listValue(elems []Value, pos Position) Value {
	return Value{Kind: KindList, List: elems, Pos: pos}
}

func exprValue(src string, pos Position) Value {
	return Value{Kind: KindExpr, Expr: src, Pos: pos}
}
