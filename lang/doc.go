// Package lang compiles the halc DSL into HAProxy configuration text.
//
// # Pipeline
//
// Compilation is a fixed sequence of passes over a typed intermediate
// representation:
//
//  1. Parse: hand-written lexer and recursive descent parser produce an AST
//     of directives, blocks, lets, loops, and spreads.
//  2. Build: the AST becomes the typed IR (Config, Frontend, Backend,
//     Listen, Server, ...). Unknown keys land in Extra maps; structural
//     mistakes fail here.
//  3. Resolve: let bindings and ${...} interpolations evaluate via
//     expr-lang, with lexical scoping and an env() builtin for process
//     environment lookups. Loop bodies are deferred; only bounds resolve.
//  4. Unroll: for loops expand, cloning their body once per iteration and
//     resolving each clone with the loop variable bound.
//  5. Expand: spread references merge template properties additively into
//     each section; explicit properties always win.
//  6. Validate: semantic checks produce warnings and fatal diagnostics.
//  7. Render: deterministic HAProxy text, four-space indent, fixed
//     section and option ordering.
//
// # Grammar
//
// Informal EBNF:
//
//	File        → 'config' Identifier Block EOF
//	Stmt        → Let | For | Spread | Directive
//	Let         → 'let' Identifier '=' Expression
//	For         → 'for' Identifier 'in' '[' Bound '..' Bound ']' Block
//	Spread      → '@' Identifier
//	Directive   → Identifier (':' Value | Arg* Block? | '@' Identifier)
//	Block       → '{' Stmt* '}'
//	Value       → Scalar | List | Interpolation
//	Scalar      → Int | Bool | Duration | String
//	List        → '[' (Value (',' Value)*)? ']'
//
// Strings interpolate ${...} expressions textually; a value that is a
// single bare ${...} resolves to the expression's native type instead.
// Durations take the units us, ms, s, m, h, and d, and only lex when the
// unit ends at a word boundary, so `weight: 100` stays an integer.
//
// # Example
//
//	config site {
//	  let threads = 4
//
//	  global {
//	    daemon
//	    nbthread: ${threads}
//	  }
//
//	  template web {
//	    mode: http
//	    timeout_connect: 5s
//	  }
//
//	  for i in [1..2] {
//	    backend "app${i}" {
//	      @web
//	      servers {
//	        server "s${i}" { address: "10.0.0.${i}", port: 8080, check: true }
//	      }
//	    }
//	  }
//	}
//
// # Scoping
//
// Scoping is lexical, innermost shadows outermost. A binding is visible
// only at source positions after its declaration, which also makes
// self-reference and cycles impossible. Loop variables introduce one
// binding per iteration; a loop's captured environment snapshots the
// scope at its header.
package lang
