package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/halc-lang/halc/lang"
	"github.com/halc-lang/halc/log"
)

// Lua materializes the Lua scripts a source file declares, writing inline
// bodies and copying referenced files into the target directory.
type Lua struct {
	Dir string   `default:"." help:"Directory to write scripts into" type:"path"`
	Env []string `            help:"Additional environment entries"  name:"env" placeholder:"KEY=VALUE" short:"e"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin" name:"source"`
}

// Run executes the lua command.
func (l *Lua) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	res, err := compileSource(ctx, l.Source, l.Env)
	if err != nil {
		printError(os.Stderr, l.Source, err)

		return err
	}

	return materializeLua(ctx, res.Config, l.Dir)
}

// materializeLua writes every declared Lua script into dir. Inline bodies
// are written verbatim; file references are copied so the output directory
// is self-contained.
func materializeLua(ctx context.Context, cfg *lang.Config, dir string) error {
	err := os.MkdirAll(dir, defaultDirMode)
	if err != nil {
		return ErrWriteLua.
			With(slog.String("dir", dir)).
			Wrap(err)
	}

	for _, f := range cfg.LuaFiles() {
		name := f.Name
		if !strings.HasSuffix(name, ".lua") {
			name += ".lua"
		}

		content := f.Content

		if !f.Inline {
			b, err := os.ReadFile(f.Path)
			if err != nil {
				return ErrWriteLua.
					With(slog.String("script", f.Name)).
					With(slog.String("path", f.Path)).
					Wrap(err)
			}

			content = string(b)
		}

		dst := filepath.Join(dir, name)

		err = os.WriteFile(dst, []byte(content), defaultFileMode)
		if err != nil {
			return ErrWriteLua.
				With(slog.String("script", f.Name)).
				Wrap(err)
		}

		log.DebugContext(ctx, "wrote lua script",
			slog.String("script", f.Name),
			slog.String("path", dst),
			slog.Bool("inline", f.Inline),
		)
	}

	return nil
}

// defaultDirMode is the permission mode for created output directories.
const defaultDirMode os.FileMode = 0o755
