package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/halc-lang/halc/lang"
)

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// readSource returns the display name and contents of the given source,
// reading stdin when path is "-".
func readSource(path string) (name, text string, err error) {
	if path == stdinSource {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}

		return "<stdin>", string(b), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	return path, string(b), nil
}

// compileSource reads and compiles a source file. The process environment is
// the base resolution environment; env entries ("key=value") override it.
func compileSource(
	ctx context.Context,
	path string,
	env []string,
) (*lang.Result, error) {
	name, text, err := readSource(path)
	if err != nil {
		return nil, ErrReadSource.
			With(slog.String("file", path)).
			Wrap(err)
	}

	return lang.Compile(ctx, text,
		lang.WithSourceName(name),
		lang.WithEnviron(append(os.Environ(), env...)),
	)
}
