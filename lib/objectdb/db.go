// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/contentindex"
	"github.com/bureau-foundation/contentstore/lib/objectid"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// MetadataType is the index metadata key holding the stored type name
// of a chunk with a header.
const MetadataType = "type"

// Options configures a [DB].
type Options struct {
	// Backend stores the object envelopes. Required.
	Backend Backend

	// Index maps locations to objects. Required.
	Index contentindex.Index

	// Compression is the policy for new objects. The zero value
	// stores them uncompressed.
	Compression Compression

	// CompressionFor overrides Compression for individual locations
	// when it returns true.
	CompressionFor func(location string) (Compression, bool)

	// Sealer, when set, seals every new object. Sealed objects can
	// only be read back through a DB holding the same master key.
	Sealer *Sealer

	Logger *slog.Logger
}

// DB is the object database. Safe for concurrent use.
type DB struct {
	backend        Backend
	index          contentindex.Index
	compression    Compression
	compressionFor func(string) (Compression, bool)
	sealer         *Sealer
	logger         *slog.Logger

	// Writes hold mu for reading so that Prune, which holds it for
	// writing, never sees an object stored but not yet indexed.
	mu sync.RWMutex
}

var _ vfs.FileProvider = (*DB)(nil)

// New returns a DB over options' backend and index.
func New(options Options) (*DB, error) {
	if options.Backend == nil {
		return nil, errors.New("objectdb: backend is required")
	}
	if options.Index == nil {
		return nil, errors.New("objectdb: index is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DB{
		backend:        options.Backend,
		index:          options.Index,
		compression:    options.Compression,
		compressionFor: options.CompressionFor,
		sealer:         options.Sealer,
		logger:         logger,
	}, nil
}

// Index returns the location index the DB was opened with.
func (db *DB) Index() contentindex.Index {
	return db.index
}

// Open implements [vfs.FileProvider]. Streams are staged in memory and
// writable streams publish a new object on Close. [vfs.Create] always
// yields a read-write stream.
func (db *DB) Open(ctx context.Context, path string, mode vfs.Mode, access vfs.Access) (vfs.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}

	var data []byte
	switch mode {
	case vfs.Open, vfs.OpenOrCreate:
		existing, _, err := db.Get(ctx, path)
		switch {
		case err == nil:
			data = existing
		case errors.Is(err, fs.ErrNotExist) && mode == vfs.OpenOrCreate:
		default:
			return nil, err
		}
	case vfs.Create:
		access = vfs.ReadWrite
	default:
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}

	if !access.CanWrite() {
		return vfs.NewReader(data), nil
	}
	flushContext := context.WithoutCancel(ctx)
	return vfs.NewStagingStream(data, access, func(contents []byte) error {
		_, err := db.Put(flushContext, path, contents)
		return err
	}), nil
}

// Exists implements [vfs.FileProvider].
func (db *DB) Exists(ctx context.Context, path string) (bool, error) {
	_, found, err := db.index.Lookup(ctx, path)
	return found, err
}

func (db *DB) policyFor(location string) Compression {
	if db.compressionFor != nil {
		if policy, ok := db.compressionFor(location); ok {
			return policy
		}
	}
	return db.compression
}

// Put stores data as an object and points location at it. An object
// with the same ID already in the backend is reused.
func (db *DB) Put(ctx context.Context, location string, data []byte) (contentindex.Entry, error) {
	id := objectid.Of(data)
	key := id.String()

	var metadata map[string]string
	if header, err := chunk.ReadHeader(vfs.NewReader(data)); err == nil && header != nil && header.Type != "" {
		metadata = map[string]string{MetadataType: header.Type}
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	exists, err := db.backend.Has(ctx, key)
	if err != nil {
		return contentindex.Entry{}, fmt.Errorf("storing %s: %w", location, err)
	}
	if !exists {
		object, tag, err := encodeObject(id, data, db.policyFor(location), db.sealer)
		if err != nil {
			return contentindex.Entry{}, fmt.Errorf("encoding %s: %w", location, err)
		}
		if err := db.backend.Put(ctx, key, object); err != nil {
			return contentindex.Entry{}, fmt.Errorf("storing %s: %w", location, err)
		}
		db.logger.Debug("stored object",
			"location", location,
			"object", id.Short(),
			"size", len(data),
			"stored_size", len(object),
			"compression", tag.String(),
			"sealed", db.sealer != nil,
		)
	}

	entry, err := db.index.Set(ctx, location, id, int64(len(data)), metadata)
	if err != nil {
		return contentindex.Entry{}, fmt.Errorf("indexing %s: %w", location, err)
	}
	return entry, nil
}

// Get returns location's bytes and index entry. A location with no
// entry returns an error satisfying errors.Is(err, fs.ErrNotExist).
func (db *DB) Get(ctx context.Context, location string) ([]byte, contentindex.Entry, error) {
	entry, found, err := db.index.Lookup(ctx, location)
	if err != nil {
		return nil, contentindex.Entry{}, fmt.Errorf("looking up %s: %w", location, err)
	}
	if !found {
		return nil, contentindex.Entry{}, &fs.PathError{Op: "open", Path: location, Err: fs.ErrNotExist}
	}
	data, err := db.ReadObject(ctx, entry.Object)
	if err != nil {
		return nil, entry, fmt.Errorf("reading %s: %w", location, err)
	}
	return data, entry, nil
}

// ReadObject fetches and decodes one object by ID.
func (db *DB) ReadObject(ctx context.Context, id objectid.ID) ([]byte, error) {
	object, err := db.backend.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return decodeObject(id, object, db.sealer)
}

// Remove deletes location's index entry. The object stays until the
// next [DB.Prune].
func (db *DB) Remove(ctx context.Context, location string) error {
	err := db.index.Delete(ctx, location)
	if errors.Is(err, contentindex.ErrNotFound) {
		return &fs.PathError{Op: "remove", Path: location, Err: fs.ErrNotExist}
	}
	return err
}

// PruneResult counts the objects Prune examined.
type PruneResult struct {
	Kept    int `json:"kept"`
	Removed int `json:"removed"`
}

// Prune deletes every backend object no index entry points at. Writes
// wait while it runs.
func (db *DB) Prune(ctx context.Context) (PruneResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entries, err := db.index.List(ctx, "")
	if err != nil {
		return PruneResult{}, fmt.Errorf("listing index: %w", err)
	}
	referenced := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		referenced[entry.Object.String()] = struct{}{}
	}

	keys, err := db.backend.List(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	var result PruneResult
	for _, key := range keys {
		if _, live := referenced[key]; live {
			result.Kept++
			continue
		}
		if err := db.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return result, fmt.Errorf("pruning object %s: %w", key, err)
		}
		result.Removed++
	}
	db.logger.Info("pruned objects", "kept", result.Kept, "removed", result.Removed)
	return result, nil
}
