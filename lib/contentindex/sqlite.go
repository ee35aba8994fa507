// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/contentstore/lib/clock"
	"github.com/bureau-foundation/contentstore/lib/codec"
	"github.com/bureau-foundation/contentstore/lib/objectid"
	"github.com/bureau-foundation/contentstore/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	location TEXT PRIMARY KEY,
	object   BLOB NOT NULL,
	size     INTEGER NOT NULL,
	created  INTEGER NOT NULL,
	updated  INTEGER NOT NULL,
	metadata BLOB
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS entries_object ON entries(object);
`

// SQLiteConfig configures [OpenSQLite].
type SQLiteConfig struct {
	// Path of the database file. Its directory must exist.
	Path string

	// PoolSize bounds concurrent connections; see [sqlitepool.Config].
	PoolSize int

	Logger *slog.Logger

	// Clock timestamps entries. Defaults to the real clock.
	Clock clock.Clock
}

// SQLiteIndex is an [Index] in a SQLite database. Timestamps are
// stored as Unix nanoseconds and metadata as a CBOR map.
type SQLiteIndex struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the index database.
func OpenSQLite(config SQLiteConfig) (*SQLiteIndex, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeSource := config.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     config.Path,
		PoolSize: config.PoolSize,
		Logger:   logger,
		Schema:   schema,
	})
	if err != nil {
		return nil, fmt.Errorf("opening content index: %w", err)
	}
	return &SQLiteIndex{pool: pool, clock: timeSource, logger: logger}, nil
}

// Lookup implements [Index].
func (s *SQLiteIndex) Lookup(ctx context.Context, location string) (Entry, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	defer s.pool.Put(conn)

	var entry Entry
	found := false
	err = sqlitex.Execute(conn,
		"SELECT location, object, size, created, updated, metadata FROM entries WHERE location = ?",
		&sqlitex.ExecOptions{
			Args: []any{location},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var scanErr error
				entry, scanErr = scanEntry(stmt)
				return scanErr
			},
		})
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up %s: %w", location, err)
	}
	return entry, found, nil
}

// Set implements [Index].
func (s *SQLiteIndex) Set(ctx context.Context, location string, object objectid.ID, size int64, metadata map[string]string) (entry Entry, err error) {
	if location == "" {
		return Entry{}, fmt.Errorf("indexing object %s: empty location", object.Short())
	}
	var encodedMetadata []byte
	if len(metadata) > 0 {
		if encodedMetadata, err = codec.Marshal(metadata); err != nil {
			return Entry{}, fmt.Errorf("encoding metadata for %s: %w", location, err)
		}
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Entry{}, err
	}
	defer s.pool.Put(conn)

	now := s.clock.Now().UTC()
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Entry{}, fmt.Errorf("indexing %s: %w", location, err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO entries (location, object, size, created, updated, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(location) DO UPDATE SET
			object = excluded.object,
			size = excluded.size,
			updated = excluded.updated,
			metadata = excluded.metadata`,
		&sqlitex.ExecOptions{
			Args: []any{location, object[:], size, now.UnixNano(), now.UnixNano(), encodedMetadata},
		})
	if err != nil {
		return Entry{}, fmt.Errorf("indexing %s: %w", location, err)
	}

	err = sqlitex.Execute(conn,
		"SELECT location, object, size, created, updated, metadata FROM entries WHERE location = ?",
		&sqlitex.ExecOptions{
			Args: []any{location},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var scanErr error
				entry, scanErr = scanEntry(stmt)
				return scanErr
			},
		})
	if err != nil {
		return Entry{}, fmt.Errorf("reading back %s: %w", location, err)
	}
	s.logger.Debug("indexed content", "location", location, "object", object.Short(), "size", size)
	return entry, nil
}

// Delete implements [Index].
func (s *SQLiteIndex) Delete(ctx context.Context, location string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, "DELETE FROM entries WHERE location = ?", &sqlitex.ExecOptions{
		Args: []any{location},
	}); err != nil {
		return fmt.Errorf("deleting %s: %w", location, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("deleting %s: %w", location, ErrNotFound)
	}
	return nil
}

// List implements [Index].
func (s *SQLiteIndex) List(ctx context.Context, prefix string) ([]Entry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		`SELECT location, object, size, created, updated, metadata FROM entries
		WHERE substr(location, 1, length(?1)) = ?1 ORDER BY location`,
		&sqlitex.ExecOptions{
			Args: []any{prefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanEntry(stmt)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	return entries, nil
}

// Close implements [Index].
func (s *SQLiteIndex) Close() error {
	return s.pool.Close()
}

func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	entry := Entry{
		Location: stmt.ColumnText(0),
		Size:     stmt.ColumnInt64(2),
		Created:  time.Unix(0, stmt.ColumnInt64(3)).UTC(),
		Updated:  time.Unix(0, stmt.ColumnInt64(4)).UTC(),
	}
	if length := stmt.ColumnLen(1); length != objectid.Size {
		return Entry{}, fmt.Errorf("entry %s: object id is %d bytes, want %d", entry.Location, length, objectid.Size)
	}
	stmt.ColumnBytes(1, entry.Object[:])

	if length := stmt.ColumnLen(5); length > 0 {
		encoded := make([]byte, length)
		stmt.ColumnBytes(5, encoded)
		if err := codec.Unmarshal(encoded, &entry.Metadata); err != nil {
			return Entry{}, fmt.Errorf("entry %s: decoding metadata: %w", entry.Location, err)
		}
	}
	return entry, nil
}
