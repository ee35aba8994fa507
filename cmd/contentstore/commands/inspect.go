// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/codec"
	"github.com/bureau-foundation/contentstore/lib/contentindex"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// chunkReport describes one stored chunk.
type chunkReport struct {
	Entry      contentindex.Entry `json:"entry"`
	Header     *chunk.Header      `json:"header,omitempty"`
	References []chunk.Reference  `json:"references"`
	BodySize   int                `json:"body_size"`

	// Body is the CBOR diagnostic notation of each item in the body.
	// BodyError is set instead when the body is not CBOR (raw blobs).
	Body      []string `json:"body,omitempty"`
	BodyError string   `json:"body_error,omitempty"`
}

// parseChunk splits a stored chunk into header, reference table and
// body.
func parseChunk(data []byte) (*chunk.Header, *chunk.ReferenceTable, []byte, error) {
	header, err := chunk.ReadHeader(vfs.NewReader(data))
	if err != nil {
		return nil, nil, nil, err
	}
	if header == nil {
		return nil, &chunk.ReferenceTable{}, data, nil
	}
	if header.Version != chunk.CurrentVersion {
		return header, nil, nil, fmt.Errorf("unsupported chunk version %d", header.Version)
	}
	if !header.Finalized() {
		return header, nil, nil, fmt.Errorf("chunk header was never finalized")
	}
	bodyStart, tableStart := int(header.OffsetToObject), int(header.OffsetToReferences)
	if bodyStart < header.Size() || tableStart < bodyStart || tableStart > len(data) {
		return header, nil, nil, fmt.Errorf("chunk offsets (%d, %d) do not fit its %d bytes", bodyStart, tableStart, len(data))
	}
	table, err := chunk.ReadReferenceTable(vfs.NewReader(data[tableStart:]))
	if err != nil {
		return header, nil, nil, err
	}
	return header, table, data[bodyStart:tableStart], nil
}

func inspectChunk(ctx context.Context, s *session, location string) (*chunkReport, error) {
	entry, found, err := s.db.Index().Lookup(ctx, location)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s is not indexed", location)
	}
	stream, err := s.store.OpenStream(ctx, location)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}

	header, table, body, err := parseChunk(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", location, err)
	}
	report := &chunkReport{
		Entry:      entry,
		Header:     header,
		References: table.Entries(),
		BodySize:   len(body),
	}
	if report.Body, err = codec.DiagnoseSequence(body); err != nil {
		report.Body = nil
		report.BodyError = err.Error()
	}
	return report, nil
}

func inspectCommand(ctx context.Context, globals *Globals) *cli.Command {
	output := &cli.Output{}
	return &cli.Command{
		Name:    "inspect",
		Summary: "Show a chunk's header, references and body",
		Description: `Decode the chunk stored at LOCATION: its index entry, header (stored
type and offsets), reference table, and the body in CBOR diagnostic
notation. Headerless chunks show only the body.`,
		Usage: "contentstore inspect LOCATION [--json]",
		Examples: []cli.Example{
			{Description: "Decode a material as JSON", Command: "contentstore inspect materials/brick --json"},
		},
		Flags: jsonFlags("inspect", output),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("inspect takes exactly one location")
			}
			output.Writer = globals.Stdout
			return withSession(ctx, globals, "inspect", func(s *session) error {
				report, err := inspectChunk(ctx, s, args[0])
				if err != nil {
					return err
				}
				if done, err := output.Emit(report); done {
					return err
				}
				printReport(output, report)
				return nil
			})
		},
	}
}

func printReport(output *cli.Output, report *chunkReport) {
	output.Printf("location:  %s\n", report.Entry.Location)
	output.Printf("object:    %s\n", report.Entry.Object)
	output.Printf("size:      %d\n", report.Entry.Size)
	if report.Header == nil {
		output.Printf("header:    none\n")
	} else {
		output.Printf("type:      %s\n", report.Header.Type)
		output.Printf("version:   %d\n", report.Header.Version)
		output.Printf("offsets:   object %d, references %d\n",
			report.Header.OffsetToObject, report.Header.OffsetToReferences)
	}
	output.Printf("references: %d\n", len(report.References))
	for index, reference := range report.References {
		output.Printf("  [%d] %s (%s)\n", index, reference.Location, reference.TypeName)
	}
	output.Printf("body:      %d bytes\n", report.BodySize)
	if report.BodyError != "" {
		output.Printf("  not CBOR: %s\n", report.BodyError)
	}
	for _, item := range report.Body {
		output.Printf("  %s\n", item)
	}
}
