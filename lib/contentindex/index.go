// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentindex maps content locations to the object IDs
// holding their bytes. The object database consults it on every open
// and updates it on every published write.
//
// Two implementations share the [Index] interface: [MemoryIndex] for
// tests and throwaway stores, and [SQLiteIndex] for persistent
// stores.
package contentindex

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/contentstore/lib/objectid"
)

// ErrNotFound is returned by Delete for a location with no entry.
var ErrNotFound = errors.New("location not indexed")

// Entry is one location's index row.
type Entry struct {
	Location string      `json:"location"`
	Object   objectid.ID `json:"object"`

	// Size is the uncompressed object size in bytes.
	Size int64 `json:"size"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	// Metadata is free-form annotation kept with the entry (the chunk
	// type name, the tool that wrote it).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Index is the location to object mapping.
type Index interface {
	// Lookup returns the entry for location. A missing location
	// returns found=false and no error.
	Lookup(ctx context.Context, location string) (entry Entry, found bool, err error)

	// Set points location at object, creating or replacing the
	// entry. Created is kept on replacement; Updated is always set.
	Set(ctx context.Context, location string, object objectid.ID, size int64, metadata map[string]string) (Entry, error)

	// Delete removes location's entry.
	Delete(ctx context.Context, location string) error

	// List returns entries whose location starts with prefix, in
	// location order.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Close releases the index's resources.
	Close() error
}
