// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
)

func pruneCommand(ctx context.Context, globals *Globals) *cli.Command {
	output := &cli.Output{}
	return &cli.Command{
		Name:    "prune",
		Summary: "Delete objects no location refers to",
		Description: `Delete every stored object that no index entry points at. Objects
become unreferenced when a location is overwritten or removed.`,
		Usage: "contentstore prune [--json]",
		Flags: jsonFlags("prune", output),
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("prune takes no arguments, got %q", args[0])
			}
			output.Writer = globals.Stdout
			return withSession(ctx, globals, "prune", func(s *session) error {
				result, err := s.db.Prune(ctx)
				if err != nil {
					return err
				}
				if done, err := output.Emit(result); done {
					return err
				}
				output.Printf("removed %d objects, kept %d\n", result.Removed, result.Kept)
				return nil
			})
		},
	}
}
