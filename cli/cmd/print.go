package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/halc-lang/halc/lang"
)

var (
	styleErrLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleWarnLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleLocation  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleRule      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// printWarnings writes one line per warning, with positions when known.
func printWarnings(w io.Writer, source string, warnings []lang.Warning) {
	for _, warn := range warnings {
		loc := source
		if warn.Pos.Line > 0 {
			loc += ":" + warn.Pos.String()
		}

		fmt.Fprintf(w, "%s %s %s %s\n",
			styleWarnLabel.Render("warning:"),
			styleLocation.Render(loc),
			warn.Msg,
			styleRule.Render("["+warn.Rule+"]"),
		)
	}
}

// printError writes a compile error. Syntax errors include the offending
// source line with a caret marker.
func printError(w io.Writer, source string, err error) {
	fmt.Fprintf(w, "%s %s %s\n",
		styleErrLabel.Render("error:"),
		styleLocation.Render(source),
		err.Error(),
	)

	var syn *lang.SyntaxError
	if errors.As(err, &syn) {
		fmt.Fprintln(w, syn.Snippet())
	}
}
