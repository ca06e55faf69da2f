package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/halc-lang/halc/lang"
	"github.com/halc-lang/halc/log"
)

// defaultFileMode is the permission mode for generated output files.
const defaultFileMode os.FileMode = 0o644

// Compile renders a source file to HAProxy configuration text.
type Compile struct {
	Output string   `default:"-" help:"Output file or '-' for stdout"                           short:"o"`
	Env    []string `            help:"Additional environment entries"                          name:"env" placeholder:"KEY=VALUE" short:"e"`
	LuaDir string   `            help:"Materialize declared Lua scripts into this directory"    name:"lua-dir" type:"path"`
	Watch  bool     `            help:"Recompile whenever the source file changes"              short:"w"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin" name:"source"`
}

// Run executes the compile command.
func (c *Compile) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if c.Watch && c.Source != stdinSource {
		return watchSource(ctx, c.Source, func() {
			// Watch mode reports failures and keeps running.
			if err := c.compile(ctx); err != nil {
				printError(os.Stderr, c.Source, err)
			}
		})
	}

	err = c.compile(ctx)
	if err != nil {
		printError(os.Stderr, c.Source, err)
	}

	return err
}

// compile runs one full compilation and writes all outputs.
func (c *Compile) compile(ctx context.Context) error {
	res, err := compileSource(ctx, c.Source, c.Env)
	if err != nil {
		return err
	}

	printWarnings(os.Stderr, c.Source, res.Warnings)

	if c.LuaDir != "" {
		err = materializeLua(ctx, res.Config, c.LuaDir)
		if err != nil {
			return err
		}
	}

	text := lang.Render(res.Config)

	err = c.write(text)
	if err != nil {
		return ErrWriteOutput.
			With(slog.String("file", c.Output)).
			Wrap(err)
	}

	log.DebugContext(ctx, "compiled",
		slog.String("source", c.Source),
		slog.String("output", c.Output),
		slog.Int("warnings", len(res.Warnings)),
	)

	return nil
}

func (c *Compile) write(text string) error {
	if c.Output == stdinSource {
		_, err := io.WriteString(os.Stdout, text)

		return err
	}

	return os.WriteFile(c.Output, []byte(text), defaultFileMode)
}
