// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the contentstore command tree and parses
// the global flags that precede a command.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/version"
)

// Root builds and returns the complete command tree.
func Root(ctx context.Context, globals *Globals) *cli.Command {
	return &cli.Command{
		Name: "contentstore",
		Description: `contentstore: inspect and maintain a content store.

Chunks are stored as content-addressed objects and indexed by
location. The store is selected by a configuration file given with
--config or CONTENTSTORE_CONFIG.

Global flags (before the command):
  --config FILE   configuration file (YAML, or JSON with comments)
  --metrics       print content store metrics to stderr on exit
  --version       print version information`,
		HelpOutput: globals.Stderr,
		Subcommands: []*cli.Command{
			listCommand(ctx, globals),
			inspectCommand(ctx, globals),
			verifyCommand(ctx, globals),
			pruneCommand(ctx, globals),
			putCommand(ctx, globals),
			getCommand(ctx, globals),
			keygenCommand(globals),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(globals.Stdout, "contentstore %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// Main parses the global flags in args and runs the selected command.
// Zero-valued Stdout and Stderr in globals default to the process
// streams.
func Main(ctx context.Context, args []string, globals Globals) error {
	if globals.Stdout == nil {
		globals.Stdout = os.Stdout
	}
	if globals.Stderr == nil {
		globals.Stderr = os.Stderr
	}

	flagSet := pflag.NewFlagSet("contentstore", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&globals.ConfigPath, "config", globals.ConfigPath, "configuration file")
	flagSet.BoolVar(&globals.Metrics, "metrics", globals.Metrics, "print metrics to stderr on exit")
	showVersion := flagSet.Bool("version", false, "print version information")
	// Help is left to the command tree.
	flagSet.BoolP("help", "h", false, "")

	root := Root(ctx, &globals)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			root.PrintHelp(globals.Stderr)
			return nil
		}
		return &cli.UsageError{Command: root.Name, Problem: err.Error()}
	}
	if help, _ := flagSet.GetBool("help"); help {
		root.PrintHelp(globals.Stderr)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(globals.Stdout, "contentstore %s\n", version.Info())
		return nil
	}
	return root.Execute(flagSet.Args())
}

// jsonFlags returns a flag set with only --json bound to output.
func jsonFlags(name string, output *cli.Output) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flagSet.BoolVar(&output.JSON, "json", false, "output as JSON")
		return flagSet
	}
}
