package lang

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokInt
	tokDuration
	tokString
	tokInterp
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokColon
	tokComma
	tokAt
	tokDotDot
	tokEquals
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokDuration:
		return "duration"
	case tokString:
		return "string"
	case tokInterp:
		return "interpolation"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokAt:
		return "'@'"
	case tokDotDot:
		return "'..'"
	case tokEquals:
		return "'='"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string    // ident, int, duration, or interpolation source
	segs []Segment // string literal segments
	pos  Position
}

// durationUnits are the accepted unit suffixes, longest first so "ms" and
// "us" win over "m" and "s" during matching.
var durationUnits = []string{"us", "ms", "s", "m", "h", "d"}

type lexer struct {
	src  string
	i    int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) next() (token, error) {
	for {
		if l.i >= len(l.src) {
			return token{kind: tokEOF, pos: l.position()}, nil
		}

		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		if r == utf8.RuneError && size == 1 {
			return token{}, l.errorf("invalid utf-8")
		}

		switch {
		case r == '\n':
			pos := l.position()
			l.consume(r, size)

			return token{kind: tokNewline, pos: pos}, nil

		case r == ' ' || r == '\t' || r == '\r':
			l.consume(r, size)

			continue

		case r == '#':
			l.skipLineComment()

			continue

		case r == '/' && strings.HasPrefix(l.src[l.i:], "//"):
			l.skipLineComment()

			continue
		}

		pos := l.position()

		switch r {
		case '{':
			l.consume(r, size)

			return token{kind: tokLBrace, pos: pos}, nil
		case '}':
			l.consume(r, size)

			return token{kind: tokRBrace, pos: pos}, nil
		case '[':
			l.consume(r, size)

			return token{kind: tokLBracket, pos: pos}, nil
		case ']':
			l.consume(r, size)

			return token{kind: tokRBracket, pos: pos}, nil
		case ':':
			l.consume(r, size)

			return token{kind: tokColon, pos: pos}, nil
		case ',':
			l.consume(r, size)

			return token{kind: tokComma, pos: pos}, nil
		case '@':
			l.consume(r, size)

			return token{kind: tokAt, pos: pos}, nil
		case '=':
			l.consume(r, size)

			return token{kind: tokEquals, pos: pos}, nil
		case '.':
			if strings.HasPrefix(l.src[l.i:], "..") {
				l.consume(r, size)
				l.consume('.', 1)

				return token{kind: tokDotDot, pos: pos}, nil
			}

			return token{}, l.errorf("unexpected '.'")
		case '$':
			if strings.HasPrefix(l.src[l.i:], "${") {
				src, err := l.readInterp()
				if err != nil {
					return token{}, err
				}

				return token{kind: tokInterp, text: src, pos: pos}, nil
			}

			return token{}, l.errorf("expected '{' after '$'")
		case '"':
			segs, err := l.readString()
			if err != nil {
				return token{}, err
			}

			return token{kind: tokString, segs: segs, pos: pos}, nil
		}

		if r == '-' || isDigit(r) {
			return l.readNumber()
		}

		if isIdentStart(r) {
			return token{kind: tokIdent, text: l.readIdent(), pos: pos}, nil
		}

		return token{}, l.errorf("unexpected character %q", r)
	}
}

// readNumber scans an integer, upgrading to a duration only when a valid
// unit suffix is immediately followed by a token boundary. The boundary
// requirement is a hard grammar invariant: without it, "weight: 100"
// followed by "maxconn: 500" could lex the digits and the first letter of
// the next key as a single duration token, silently corrupting both
// fields.
func (l *lexer) readNumber() (token, error) {
	pos := l.position()
	start := l.i

	if l.src[l.i] == '-' {
		l.consume('-', 1)
	}

	digits := 0
	for l.i < len(l.src) && isDigit(rune(l.src[l.i])) {
		l.consume(rune(l.src[l.i]), 1)
		digits++
	}

	if digits == 0 {
		return token{}, l.errorf("expected digit after '-'")
	}

	text := l.src[start:l.i]

	for _, unit := range durationUnits {
		if !strings.HasPrefix(l.src[l.i:], unit) {
			continue
		}

		// The rune after the unit suffix must not extend the word.
		after := l.i + len(unit)
		if after < len(l.src) {
			r, _ := utf8.DecodeRuneInString(l.src[after:])
			if isIdentPart(r) {
				continue
			}
		}

		for range unit {
			l.consume(rune(l.src[l.i]), 1)
		}

		return token{kind: tokDuration, text: text + unit, pos: pos}, nil
	}

	return token{kind: tokInt, text: text, pos: pos}, nil
}

// readIdent scans an identifier. Interior '-' and '.' are part of the
// identifier only when followed by another identifier character, so a
// range like [1..3] or a trailing '-' never gets swallowed.
func (l *lexer) readIdent() string {
	start := l.i

	for l.i < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])

		if isIdentPart(r) {
			l.consume(r, size)

			continue
		}

		if r == '-' || r == '.' {
			if l.i+size < len(l.src) {
				nr, _ := utf8.DecodeRuneInString(l.src[l.i+size:])
				if isIdentPart(nr) {
					l.consume(r, size)

					continue
				}
			}
		}

		break
	}

	return l.src[start:l.i]
}

// readString scans a quoted string literal into segments, splitting out
// ${...} interpolations. A leading `"""` switches to raw multi-line mode
// used for inline script bodies: no escapes, no interpolation.
func (l *lexer) readString() ([]Segment, error) {
	if strings.HasPrefix(l.src[l.i:], `"""`) {
		return l.readRawString()
	}

	l.consume('"', 1)

	var (
		segs []Segment
		lit  strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Lit: lit.String()})
			lit.Reset()
		}
	}

	for {
		if l.i >= len(l.src) {
			return nil, l.errorf("unterminated string")
		}

		r, size := utf8.DecodeRuneInString(l.src[l.i:])

		switch {
		case r == '\n':
			return nil, l.errorf("unterminated string")

		case r == '"':
			l.consume(r, size)
			flush()

			if segs == nil {
				segs = []Segment{{}}
			}

			return segs, nil

		case r == '\\':
			l.consume(r, size)

			if l.i >= len(l.src) {
				return nil, l.errorf("unterminated escape")
			}

			er, esize := utf8.DecodeRuneInString(l.src[l.i:])
			l.consume(er, esize)

			switch er {
			case 'n':
				lit.WriteRune('\n')
			case 't':
				lit.WriteRune('\t')
			case 'r':
				lit.WriteRune('\r')
			case '\\', '"', '$':
				lit.WriteRune(er)
			default:
				// Keep unknown escapes as-is (best-effort).
				lit.WriteRune(er)
			}

		case r == '$' && strings.HasPrefix(l.src[l.i:], "${"):
			src, err := l.readInterp()
			if err != nil {
				return nil, err
			}

			flush()

			segs = append(segs, Segment{Expr: src, IsExpr: true})

		default:
			l.consume(r, size)
			lit.WriteRune(r)
		}
	}
}

func (l *lexer) readRawString() ([]Segment, error) {
	for range 3 {
		l.consume('"', 1)
	}

	start := l.i

	for l.i < len(l.src) {
		if strings.HasPrefix(l.src[l.i:], `"""`) {
			text := l.src[start:l.i]

			for range 3 {
				l.consume('"', 1)
			}

			return []Segment{{Lit: text}}, nil
		}

		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		l.consume(r, size)
	}

	return nil, l.errorf("unterminated raw string")
}

// readInterp consumes a ${...} interpolation with balanced braces and
// returns the inner expression source. String literals inside the
// expression are skipped so delimiters within them don't count.
func (l *lexer) readInterp() (string, error) {
	l.consume('$', 1)
	l.consume('{', 1)

	start := l.i
	depth := 0

	for l.i < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])

		switch r {
		case '{':
			depth++
			l.consume(r, size)
		case '}':
			if depth == 0 {
				src := l.src[start:l.i]
				l.consume(r, size)

				return strings.TrimSpace(src), nil
			}

			depth--
			l.consume(r, size)
		case '"', '\'':
			if err := l.skipQuoted(r); err != nil {
				return "", err
			}
		default:
			l.consume(r, size)
		}
	}

	return "", l.errorf("unterminated '${'")
}

func (l *lexer) skipQuoted(quote rune) error {
	l.consume(quote, 1)

	for l.i < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		if r == '\\' {
			l.consume(r, size)

			if l.i < len(l.src) {
				er, esize := utf8.DecodeRuneInString(l.src[l.i:])
				l.consume(er, esize)
			}

			continue
		}

		l.consume(r, size)

		if r == quote {
			return nil
		}
	}

	return l.errorf("unterminated string in expression")
}

func (l *lexer) skipLineComment() {
	for l.i < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])
		if r == '\n' {
			return
		}

		l.consume(r, size)
	}
}

func (l *lexer) consume(r rune, size int) {
	l.i += size

	if r == '\n' {
		l.line++
		l.col = 1

		return
	}

	l.col++
}

func (l *lexer) position() Position {
	return Position{Offset: l.i, Line: l.line, Column: l.col}
}

func (l *lexer) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: l.position(), Msg: fmt.Sprintf(format, args...)}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
