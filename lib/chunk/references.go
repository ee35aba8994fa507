// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"fmt"
	"io"
)

// MaxReferences bounds the entry count accepted by
// [ReadReferenceTable].
const MaxReferences = 1 << 20

// Reference is one reference table entry: the registered type name of
// the referenced object and the location it is stored under.
type Reference struct {
	TypeName string `json:"type"`
	Location string `json:"location"`
}

// ReferenceTable lists the other content objects a chunk's body refers
// to. The body encodes each reference as its integer index in this
// table instead of inlining the referenced object.
type ReferenceTable struct {
	entries []Reference
}

// Add returns the index of (typeName, location), appending it if it is
// not already present. The search runs from the end because a body
// tends to refer to the same object several times in a row.
func (t *ReferenceTable) Add(typeName, location string) int {
	for index := len(t.entries) - 1; index >= 0; index-- {
		entry := t.entries[index]
		if entry.TypeName == typeName && entry.Location == location {
			return index
		}
	}
	t.entries = append(t.entries, Reference{TypeName: typeName, Location: location})
	return len(t.entries) - 1
}

// Len returns the number of entries.
func (t *ReferenceTable) Len() int {
	return len(t.entries)
}

// Entry returns the entry at index. It panics if index is out of
// range; callers validate indexes decoded from a body with [Has].
func (t *ReferenceTable) Entry(index int) Reference {
	return t.entries[index]
}

// Has reports whether index addresses an entry.
func (t *ReferenceTable) Has(index int) bool {
	return index >= 0 && index < len(t.entries)
}

// Entries returns a copy of the entries in insertion order.
func (t *ReferenceTable) Entries() []Reference {
	entries := make([]Reference, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Write encodes the table: a uvarint entry count, then each entry's
// type name and location as length-prefixed strings.
func (t *ReferenceTable) Write(w io.Writer) error {
	if err := writeUvarint(w, uint64(len(t.entries))); err != nil {
		return fmt.Errorf("writing reference count: %w", err)
	}
	for index, entry := range t.entries {
		if err := writeString(w, entry.TypeName); err != nil {
			return fmt.Errorf("writing reference %d type: %w", index, err)
		}
		if err := writeString(w, entry.Location); err != nil {
			return fmt.Errorf("writing reference %d location: %w", index, err)
		}
	}
	return nil
}

// ReadReferenceTable decodes a table written by [ReferenceTable.Write].
func ReadReferenceTable(r io.Reader) (*ReferenceTable, error) {
	count, err := readUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("reading reference count: %w", err)
	}
	if count > MaxReferences {
		return nil, fmt.Errorf("reference count %d exceeds maximum %d", count, MaxReferences)
	}

	table := &ReferenceTable{entries: make([]Reference, count)}
	for index := range table.entries {
		entry := &table.entries[index]
		if entry.TypeName, err = readString(r); err != nil {
			return nil, fmt.Errorf("reading reference %d type: %w", index, err)
		}
		if entry.Location, err = readString(r); err != nil {
			return nil, fmt.Errorf("reading reference %d location: %w", index, err)
		}
	}
	return table, nil
}
