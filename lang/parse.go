package lang

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseReader parses a source file from an io.Reader.
func ParseReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return ParseString(string(data))
}

// ParseString parses DSL source text into a syntax tree. The tree carries
// no semantic interpretation; every later stage operates on the typed IR
// built from it.
func ParseString(src string) (*File, error) {
	p := &parser{lex: newLexer(src)}

	if err := p.advance(); err != nil {
		return nil, attachSource(err, src)
	}

	file, err := p.parseFile()
	if err != nil {
		return nil, attachSource(err, src)
	}

	return file, nil
}

// attachSource gives syntax errors the input text so they can render a
// snippet with a caret marker.
func attachSource(err error, src string) error {
	if se, ok := err.(*SyntaxError); ok {
		se.Source = src
	}

	return err
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}

	p.tok = tok

	return nil
}

func (p *parser) fail(msg string, expected ...string) error {
	return &SyntaxError{
		Pos:      p.tok.pos,
		Msg:      msg,
		Expected: expected,
	}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.fail(
			"unexpected "+p.tok.kind.String(), kind.String())
	}

	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}

	return tok, nil
}

// skipSeps consumes any run of newline and comma separators.
func (p *parser) skipSeps() error {
	for p.tok.kind == tokNewline || p.tok.kind == tokComma {
		if err := p.advance(); err != nil {
			return err
		}
	}

	return nil
}

func (p *parser) parseFile() (*File, error) {
	if err := p.skipSeps(); err != nil {
		return nil, err
	}

	pos := p.tok.pos

	kw, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	if kw.text != "config" {
		return nil, &SyntaxError{
			Pos:      kw.pos,
			Msg:      "unexpected " + strconv.Quote(kw.text),
			Expected: []string{"config"},
		}
	}

	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if err := p.skipSeps(); err != nil {
		return nil, err
	}

	if p.tok.kind != tokEOF {
		return nil, p.fail(
			"unexpected "+p.tok.kind.String()+" after config block",
			"end of input")
	}

	return &File{Name: name.text, Body: body, Pos: pos}, nil
}

func (p *parser) parseBlock() (*Block, error) {
	open, err := p.expect(tokLBrace)
	if err != nil {
		return nil, err
	}

	block := &Block{Pos: open.pos}

	for {
		if err := p.skipSeps(); err != nil {
			return nil, err
		}

		if p.tok.kind == tokRBrace {
			return block, p.advance()
		}

		if p.tok.kind == tokEOF {
			return nil, p.fail("unterminated block", "'}'")
		}

		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}

		block.Stmts = append(block.Stmts, stmt)

		// A statement ends at a separator or the closing brace.
		switch p.tok.kind {
		case tokNewline, tokComma, tokRBrace, tokEOF:
		default:
			return nil, p.fail(
				"unexpected "+p.tok.kind.String()+" after statement",
				"newline", "','", "'}'")
		}
	}
}

func (p *parser) parseStmt() (Stmt, error) {
	switch p.tok.kind {
	case tokAt:
		return p.parseSpread()
	case tokIdent:
		switch p.tok.text {
		case "let":
			return p.parseLet()
		case "for":
			return p.parseFor()
		}

		return p.parseDirective()
	default:
		return nil, p.fail("unexpected "+p.tok.kind.String(),
			"identifier", "'@'", "let", "for")
	}
}

func (p *parser) parseSpread() (*Spread, error) {
	pos := p.tok.pos

	if err := p.advance(); err != nil {
		return nil, err
	}

	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	return &Spread{Name: name.text, Pos: pos}, nil
}

func (p *parser) parseLet() (*Let, error) {
	pos := p.tok.pos

	if err := p.advance(); err != nil { // 'let'
		return nil, err
	}

	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	if p.tok.kind != tokEquals {
		return nil, p.fail("unexpected "+p.tok.kind.String(), "'='")
	}

	// The lexer sits just past '=': capture the raw expression source up
	// to the end of the statement and hand it to expr-lang unparsed.
	src, err := p.lex.captureExpr()
	if err != nil {
		return nil, err
	}

	if src == "" {
		return nil, p.fail("empty let expression", "expression")
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	return &Let{Name: name.text, Src: src, Pos: pos}, nil
}

func (p *parser) parseFor() (*For, error) {
	pos := p.tok.pos

	if err := p.advance(); err != nil { // 'for'
		return nil, err
	}

	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	kw, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	if kw.text != "in" {
		return nil, &SyntaxError{
			Pos:      kw.pos,
			Msg:      "unexpected " + strconv.Quote(kw.text),
			Expected: []string{"in"},
		}
	}

	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}

	lo, err := p.parseBound()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokDotDot); err != nil {
		return nil, err
	}

	hi, err := p.parseBound()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &For{Var: name.text, Lo: lo, Hi: hi, Body: body, Pos: pos}, nil
}

// parseBound parses a loop bound: an integer literal or a ${...}
// expression resolved before unrolling.
func (p *parser) parseBound() (Value, error) {
	switch p.tok.kind {
	case tokInt:
		return p.parseValue()
	case tokInterp:
		return p.parseValue()
	default:
		return Value{}, p.fail(
			"unexpected "+p.tok.kind.String()+" in loop range",
			"integer", "interpolation")
	}
}

func (p *parser) parseDirective() (*Directive, error) {
	key := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}

	d := &Directive{Key: key.text, Pos: key.pos}

	switch p.tok.kind {
	case tokColon:
		if err := p.advance(); err != nil {
			return nil, err
		}

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		d.Val = &val

		return d, nil

	case tokLBrace:
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}

		d.Block = block

		return d, nil

	case tokAt:
		if err := p.advance(); err != nil {
			return nil, err
		}

		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}

		d.Spread = name.text

		return d, nil
	}

	// Positional arguments, optionally followed by a block:
	// `peer node1 "10.0.0.1" 1024` or `backend api { ... }`.
	for startsValue(p.tok.kind) {
		arg, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		d.Args = append(d.Args, arg)
	}

	if p.tok.kind == tokLBrace {
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}

		d.Block = block
	}

	return d, nil
}

func startsValue(k tokenKind) bool {
	switch k {
	case tokIdent, tokInt, tokDuration, tokString, tokInterp, tokLBracket:
		return true
	default:
		return false
	}
}

func (p *parser) parseValue() (Value, error) {
	tok := p.tok

	switch tok.kind {
	case tokInt:
		i, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return Value{}, &SyntaxError{
				Pos: tok.pos,
				Msg: "integer out of range: " + tok.text,
			}
		}

		return intValue(i, tok.pos), p.advance()

	case tokDuration:
		return durValue(tok.text, tok.pos), p.advance()

	case tokString:
		return stringValue(tok.segs, tok.pos), p.advance()

	case tokInterp:
		return exprValue(tok.text, tok.pos), p.advance()

	case tokIdent:
		// Bare words: booleans, or unquoted string values like
		// `mode: http` and `balance: roundrobin`.
		switch tok.text {
		case "true":
			return boolValue(true, tok.pos), p.advance()
		case "false":
			return boolValue(false, tok.pos), p.advance()
		}

		return strValue(tok.text, tok.pos), p.advance()

	case tokLBracket:
		return p.parseList()

	default:
		return Value{}, p.fail("unexpected "+tok.kind.String(),
			"value")
	}
}

func (p *parser) parseList() (Value, error) {
	open, err := p.expect(tokLBracket)
	if err != nil {
		return Value{}, err
	}

	var elems []Value

	for {
		if err := p.skipSeps(); err != nil {
			return Value{}, err
		}

		if p.tok.kind == tokRBracket {
			return listValue(elems, open.pos), p.advance()
		}

		if p.tok.kind == tokEOF {
			return Value{}, p.fail("unterminated list", "']'")
		}

		elem, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}

		elems = append(elems, elem)

		switch p.tok.kind {
		case tokComma, tokNewline, tokRBracket:
		default:
			return Value{}, p.fail(
				"unexpected "+p.tok.kind.String()+" in list",
				"','", "']'")
		}
	}
}

// stringValue builds a string Value from lexer segments. Strings without
// interpolation are resolved immediately; interpolated ones keep their
// segments for the resolver.
func stringValue(segs []Segment, pos Position) Value {
	interpolated := false

	for _, seg := range segs {
		if seg.IsExpr {
			interpolated = true

			break
		}
	}

	if !interpolated {
		var sb strings.Builder

		for _, seg := range segs {
			sb.WriteString(seg.Lit)
		}

		return strValue(sb.String(), pos)
	}

	return Value{Kind: KindString, Segs: segs, Pos: pos}
}

// captureExpr reads raw expression text from the current lexer position
// up to an unbalanced '}', a top-level newline or ',', or EOF. Brackets
// are tracked and string literals skipped so delimiters inside them don't
// terminate the capture. The captured text is handed verbatim to
// expr-lang.
func (l *lexer) captureExpr() (string, error) {
	start := l.i
	depth := 0

	for l.i < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.i:])

		switch r {
		case '(', '[', '{':
			depth++
			l.consume(r, size)
		case ')', ']', '}':
			if depth == 0 {
				return strings.TrimSpace(l.src[start:l.i]), nil
			}

			depth--
			l.consume(r, size)
		case '\n', ',':
			if depth == 0 {
				return strings.TrimSpace(l.src[start:l.i]), nil
			}

			l.consume(r, size)
		case '"', '\'':
			if err := l.skipQuoted(r); err != nil {
				return "", err
			}
		case '#':
			if depth == 0 {
				return strings.TrimSpace(l.src[start:l.i]), nil
			}

			l.skipLineComment()
		default:
			l.consume(r, size)
		}
	}

	return strings.TrimSpace(l.src[start:l.i]), nil
}
