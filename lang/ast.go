package lang

import "strconv"

// Position locates a token in the source text. Offset is the byte offset
// from the start of input; it is also used by the resolver to decide
// whether a let binding is visible at a use site.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns the "line:column" form used in diagnostics.
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// File is the root of the syntax tree: exactly one `config <name> { ... }`
// declaration per source file.
type File struct {
	Name string
	Body *Block
	Pos  Position
}

// Block is a braced statement list. Statements are separated by newlines
// or commas; a trailing separator is allowed.
type Block struct {
	Stmts []Stmt
	Pos   Position
}

// Stmt is one statement inside a block.
type Stmt interface {
	Position() Position
}

// Directive covers every key-driven statement form:
//
//	daemon                      bare flag
//	mode: http                  key/value pair
//	peer node1 "10.0.0.1" 1024  key with positional arguments
//	backend api { ... }         named block
//	timeout { ... }             anonymous block
//	health-check @fast          key with spread shorthand
type Directive struct {
	Key    string
	Args   []Value
	Val    *Value // key: value form
	Block  *Block
	Spread string // key @name shorthand
	Pos    Position
}

// Position implements [Stmt].
func (d *Directive) Position() Position { return d.Pos }

// Let binds a name to an expression, visible from its declaration point to
// the end of the enclosing block and all nested blocks.
type Let struct {
	Name string
	Src  string // raw expression source, handed to expr-lang
	Pos  Position
}

// Position implements [Stmt].
func (l *Let) Position() Position { return l.Pos }

// For is a `for var in [lo..hi] { ... }` repetition block. Bounds are
// integer literals or ${...} expressions.
type For struct {
	Var  string
	Lo   Value
	Hi   Value
	Body *Block
	Pos  Position
}

// Position implements [Stmt].
func (f *For) Position() Position { return f.Pos }

// Spread is a standalone `@name` template reference inside a block.
type Spread struct {
	Name string
	Pos  Position
}

// Position implements [Stmt].
func (s *Spread) Position() Position { return s.Pos }
