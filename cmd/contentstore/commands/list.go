// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/objectdb"
)

func listCommand(ctx context.Context, globals *Globals) *cli.Command {
	output := &cli.Output{}
	return &cli.Command{
		Name:    "list",
		Summary: "List indexed locations",
		Description: `List every indexed location, or those starting with PREFIX, with the
object holding its bytes, its size, the stored type recorded from its
chunk header, and when it was last written.`,
		Usage: "contentstore list [PREFIX] [--json]",
		Examples: []cli.Example{
			{Description: "List every material", Command: "contentstore list materials/"},
		},
		Flags: jsonFlags("list", output),
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("list takes at most one prefix, got %d arguments", len(args))
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			output.Writer = globals.Stdout
			return withSession(ctx, globals, "list", func(s *session) error {
				entries, err := s.db.Index().List(ctx, prefix)
				if err != nil {
					return err
				}
				if done, err := output.Emit(entries); done {
					return err
				}
				table := output.Table()
				fmt.Fprintln(table, "LOCATION\tOBJECT\tSIZE\tTYPE\tUPDATED")
				for _, entry := range entries {
					typeName := entry.Metadata[objectdb.MetadataType]
					if typeName == "" {
						typeName = "-"
					}
					fmt.Fprintf(table, "%s\t%s\t%d\t%s\t%s\n",
						entry.Location, entry.Object.Short(), entry.Size, typeName,
						entry.Updated.Local().Format(time.DateTime))
				}
				return table.Flush()
			})
		},
	}
}
