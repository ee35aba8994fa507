// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/contentstore"
)

func putCommand(ctx context.Context, globals *Globals) *cli.Command {
	output := &cli.Output{}
	return &cli.Command{
		Name:    "put",
		Summary: "Store a file as raw content",
		Description: `Save FILE (or stdin when FILE is "-" or absent) as headerless raw
content at LOCATION, replacing whatever was there.`,
		Usage: "contentstore put LOCATION [FILE] [--json]",
		Examples: []cli.Example{
			{Description: "Store a texture", Command: "contentstore put textures/brick brick.png"},
		},
		Flags: jsonFlags("put", output),
		Run: func(args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("put takes a location and an optional file")
			}
			location := args[0]
			var input io.Reader = os.Stdin
			if len(args) == 2 && args[1] != "-" {
				file, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer file.Close()
				input = file
			}
			data, err := io.ReadAll(input)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			output.Writer = globals.Stdout
			return withSession(ctx, globals, "put", func(s *session) error {
				if err := s.store.Save(ctx, location, &content.Blob{Data: data}, nil); err != nil {
					return err
				}
				entry, _, err := s.db.Index().Lookup(ctx, location)
				if err != nil {
					return err
				}
				s.logger.Info("stored content", "location", location, "object", entry.Object.Short(), "size", entry.Size)
				if done, err := output.Emit(entry); done {
					return err
				}
				output.Printf("%s %s\n", entry.Object, location)
				return nil
			})
		},
	}
}

func getCommand(ctx context.Context, globals *Globals) *cli.Command {
	return &cli.Command{
		Name:    "get",
		Summary: "Write raw content to stdout",
		Description: `Load LOCATION as raw content and write its bytes to stdout. Chunks
with a typed header cannot be loaded raw; use inspect for those.`,
		Usage: "contentstore get LOCATION",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("get takes exactly one location")
			}
			return withSession(ctx, globals, "get", func(s *session) error {
				blob, err := contentstore.LoadAs[*content.Blob](ctx, s.store, args[0], nil)
				if err != nil {
					return err
				}
				if blob == nil {
					return fmt.Errorf("%s: %w", args[0], contentstore.ErrNotFound)
				}
				defer s.store.Unload(blob)
				_, err = globals.Stdout.Write(blob.Data)
				return err
			})
		},
	}
}
