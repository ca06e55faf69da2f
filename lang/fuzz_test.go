package lang

import (
	"context"
	"testing"
	"unicode/utf8"
)

// FuzzLexer feeds arbitrary inputs to the lexer to find edge cases.
func FuzzLexer(f *testing.F) {
	// Seed corpus with known valid inputs
	f.Add("foo")
	f.Add("123")
	f.Add(`"string"`)
	f.Add("${base + 1}")
	f.Add("# comment\n")
	f.Add("// comment\n")
	f.Add("tune.lua.maxmem")
	f.Add("timeout_connect: 5s")
	f.Add("[1, 2, 3]")
	f.Add(`"app-${i}-srv"`)
	f.Add("-42")
	f.Add("100ms")

	f.Fuzz(func(t *testing.T, input string) {
		// Skip invalid UTF-8
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		// Lexer should not panic on any input
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("lexer panicked on input %q: %v", input, r)
			}
		}()

		l := newLexer(input)

		for {
			tok, err := l.next()
			if err != nil {
				return
			}

			if tok.kind == tokEOF {
				return
			}

			if tok.pos.Line < 1 || tok.pos.Column < 1 {
				t.Errorf("token %v has invalid position %+v", tok.kind, tok.pos)
			}
		}
	})
}

// FuzzParser feeds arbitrary inputs to the parser to find edge cases.
func FuzzParser(f *testing.F) {
	// Seed corpus with known valid syntax
	f.Add("config c {}")
	f.Add("config c { let x = 1 }")
	f.Add("config c { global { daemon: true } }")
	f.Add("config c { backend b { balance: roundrobin } }")
	f.Add("config c { for i in [1..3] { backend " + `"b${i}"` + " {} } }")
	f.Add("config c { frontend f { bind { address: \"*\", port: 80 } } }")
	f.Add("config c { template t { mode: http } }")
	f.Add("config c { backend b { @t } }")
	f.Add("config c { peers p { peer n1 \"10.0.0.1\" 1024 } }")
	f.Add("config c { listen l { timeout_client: 30s } }")

	f.Fuzz(func(t *testing.T, input string) {
		// Skip invalid UTF-8
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		// Parser should not panic on any input
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("parser panicked on input %q: %v", input, r)
			}
		}()

		file, err := ParseString(input)

		// It's OK for parsing to fail, but it shouldn't panic
		// and errors should be well-formed
		if err != nil {
			if err.Error() == "" {
				t.Errorf("empty error message for input %q", input)
			}
			return
		}

		if file == nil {
			t.Errorf("nil file without error for input %q", input)
		}
	})
}

// FuzzCompile runs the full pipeline on arbitrary inputs. Successful
// compilations must render without panicking.
func FuzzCompile(f *testing.F) {
	f.Add("config c { backend b { servers { server s { address: \"10.0.0.1\", port: 80 } } } }")
	f.Add("config c { let n = 2\n backend b { maxconn: ${n * 100} } }")
	f.Add("config c { for i in [1..2] { backend \"b${i}\" {} } }")
	f.Add("config c { global { maxconn: 1024 } defaults { mode: http } }")
	f.Add("config c { backend b { @missing } }")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("compile panicked on input %q: %v", input, r)
			}
		}()

		res, err := Compile(context.Background(), input)
		if err != nil {
			return
		}

		out := Render(res.Config)
		_ = out
	})
}

// FuzzDuration exercises duration literal lexing specifically.
func FuzzDuration(f *testing.F) {
	f.Add("5s")
	f.Add("100ms")
	f.Add("250us")
	f.Add("30m")
	f.Add("2h")
	f.Add("1d")
	f.Add("100max")
	f.Add("5s10s")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("duration lexing panicked on %q: %v", input, r)
			}
		}()

		l := newLexer(input)

		for {
			tok, err := l.next()
			if err != nil || tok.kind == tokEOF {
				return
			}
		}
	})
}

// FuzzInterpolation exercises string segment lexing specifically.
func FuzzInterpolation(f *testing.F) {
	f.Add(`""`)
	f.Add(`"plain"`)
	f.Add(`"${x}"`)
	f.Add(`"a-${x}-b"`)
	f.Add(`"${x + y * 2}"`)
	f.Add(`"${env("HOME")}"`)
	f.Add(`"unterminated ${x`)
	f.Add(`"say \"hello\""`)

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("string lexing panicked on %q: %v", input, r)
			}
		}()

		l := newLexer(input)

		for {
			tok, err := l.next()
			if err != nil || tok.kind == tokEOF {
				return
			}
		}
	})
}
