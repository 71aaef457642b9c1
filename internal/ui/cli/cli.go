// Package cli is the pyshape command line: the cobra command tree, logging
// setup, and the wiring of config, engine, cache and observability.
package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"pyshape/internal/shared/version"

	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitDirty   = 1
	exitFailure = 2
)

type rootOptions struct {
	configPath string
	verbose    bool
	ui         string
	workers    int
	options    []string
	noCache    bool
	format     string
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// NewRootCommand builds the command tree writing to the given streams.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pyshape",
		Short:         "Reshape Python sources: relocate imports and normalize declaration order",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to pyshape.toml (default: nearest one above the working directory)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.ui, "ui", "auto", "progress view: auto, on or off")
	flags.IntVar(&opts.workers, "workers", 0, "files processed in parallel (default from config)")
	flags.StringSliceVar(&opts.options, "options", nil, "passes to enable, overriding the config")
	flags.BoolVar(&opts.noCache, "no-cache", false, "ignore the clean-file cache")
	flags.StringVar(&opts.format, "format", "text", "summary format: text, sarif or tsv")

	root.AddCommand(
		newRunCommand(opts),
		newCheckCommand(opts),
		newDiffCommand(opts),
		newWatchCommand(opts),
		newPassesCommand(opts),
		newCacheCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if stderrors.As(err, &exit) {
		if exit.msg != "" {
			fmt.Fprintln(os.Stderr, exit.msg)
		}
		return exit.code
	}
	fmt.Fprintf(os.Stderr, "pyshape: %v\n", err)
	return exitFailure
}
