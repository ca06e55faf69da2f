package cmd

import (
	"context"
	"fmt"
	"os"
)

// Check compiles a source file and reports diagnostics without writing
// any configuration output.
type Check struct {
	Env []string `help:"Additional environment entries" name:"env" placeholder:"KEY=VALUE" short:"e"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin" name:"source"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	res, err := compileSource(ctx, c.Source, c.Env)
	if err != nil {
		printError(os.Stderr, c.Source, err)

		return err
	}

	printWarnings(os.Stderr, c.Source, res.Warnings)

	fmt.Fprintf(os.Stderr, "%s: ok (%d warnings)\n", c.Source, len(res.Warnings))

	return nil
}
