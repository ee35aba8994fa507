// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
)

// verifyProblem is one defect verify found.
type verifyProblem struct {
	Location string `json:"location"`
	Problem  string `json:"problem"`
}

type verifyResult struct {
	Checked  int             `json:"checked"`
	Problems []verifyProblem `json:"problems"`
}

// verifyChunks reads every chunk under prefix through the store,
// which checks each object's hash, parses it, and checks that every
// reference target is indexed.
func verifyChunks(ctx context.Context, s *session, prefix string) (verifyResult, error) {
	entries, err := s.db.Index().List(ctx, prefix)
	if err != nil {
		return verifyResult{}, err
	}
	result := verifyResult{Problems: []verifyProblem{}}
	report := func(location, format string, args ...any) {
		problem := fmt.Sprintf(format, args...)
		result.Problems = append(result.Problems, verifyProblem{Location: location, Problem: problem})
		s.logger.Warn("verification failed", "location", location, "problem", problem)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		stream, err := s.store.OpenStream(ctx, entry.Location)
		if err != nil {
			report(entry.Location, "%v", err)
			continue
		}
		data, err := io.ReadAll(stream)
		stream.Close()
		if err != nil {
			report(entry.Location, "reading: %v", err)
			continue
		}
		if int64(len(data)) != entry.Size {
			report(entry.Location, "size %d, index records %d", len(data), entry.Size)
		}
		_, table, _, err := parseChunk(data)
		if err != nil {
			report(entry.Location, "%v", err)
			continue
		}
		for _, reference := range table.Entries() {
			exists, err := s.store.Exists(ctx, reference.Location)
			if err != nil {
				return result, err
			}
			if !exists {
				report(entry.Location, "references missing %s (%s)", reference.Location, reference.TypeName)
			}
		}
	}
	return result, nil
}

func verifyCommand(ctx context.Context, globals *Globals) *cli.Command {
	output := &cli.Output{}
	return &cli.Command{
		Name:    "verify",
		Summary: "Check that indexed chunks read back and their references resolve",
		Description: `Read every indexed chunk (or those under PREFIX), checking that its
object decodes and hashes to its ID, that the chunk parses, and that
every location in its reference table is indexed. Exits 1 when any
problem is found.`,
		Usage: "contentstore verify [PREFIX] [--json]",
		Flags: jsonFlags("verify", output),
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("verify takes at most one prefix, got %d arguments", len(args))
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			output.Writer = globals.Stdout
			return withSession(ctx, globals, "verify", func(s *session) error {
				result, err := verifyChunks(ctx, s, prefix)
				if err != nil {
					return err
				}
				done, err := output.Emit(result)
				if err != nil {
					return err
				}
				if !done {
					for _, problem := range result.Problems {
						output.Printf("%s: %s\n", problem.Location, problem.Problem)
					}
					output.Printf("checked %d chunks, %d problems\n", result.Checked, len(result.Problems))
				}
				if len(result.Problems) > 0 {
					return &cli.ExitError{Code: 1}
				}
				return nil
			})
		},
	}
}
