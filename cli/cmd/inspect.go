package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
)

// Inspect dumps the fully resolved configuration as YAML, after all
// variable resolution, loop unrolling, and template expansion.
type Inspect struct {
	Env []string `help:"Additional environment entries" name:"env" placeholder:"KEY=VALUE" short:"e"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin" name:"source"`
}

// Run executes the inspect command.
func (i *Inspect) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	res, err := compileSource(ctx, i.Source, i.Env)
	if err != nil {
		printError(os.Stderr, i.Source, err)

		return err
	}

	printWarnings(os.Stderr, i.Source, res.Warnings)

	out, err := yaml.MarshalWithOptions(res.Config,
		yaml.Indent(2),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return ErrYAMLMarshal.
			With(slog.String("source", i.Source)).
			Wrap(err)
	}

	_, err = os.Stdout.Write(out)

	return err
}
