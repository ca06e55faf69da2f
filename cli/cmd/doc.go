// Package cmd provides the halc subcommands: compile, check, inspect,
// and lua.
package cmd
