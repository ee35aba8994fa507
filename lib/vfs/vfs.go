// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vfs defines the virtual file namespace the content store
// reads and writes chunks through, and provides in-memory and
// directory-backed implementations.
//
// A path is an opaque slash-separated location string. The store never
// interprets it beyond passing it to a [FileProvider]; providers decide
// how paths map to storage. Every [Stream] is seekable because the
// chunk writer patches its header after the body is written.
// Providers backed by something that cannot seek (object stores,
// network transports) hand out a [StagingStream] that buffers the
// whole object and flushes it on Close.
package vfs

import (
	"context"
	"fmt"
	"io"
)

// Mode selects what Open does when the path does or does not exist.
type Mode int

const (
	// Open opens an existing file. A missing file is an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Open Mode = iota

	// OpenOrCreate opens an existing file or creates an empty one.
	OpenOrCreate

	// Create creates a file, truncating any existing content.
	Create
)

func (m Mode) String() string {
	switch m {
	case Open:
		return "open"
	case OpenOrCreate:
		return "open-or-create"
	case Create:
		return "create"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Access selects which operations the returned stream permits.
type Access int

const (
	Read Access = 1 << iota
	Write
	ReadWrite = Read | Write
)

// CanRead reports whether a includes read access.
func (a Access) CanRead() bool { return a&Read != 0 }

// CanWrite reports whether a includes write access.
func (a Access) CanWrite() bool { return a&Write != 0 }

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Stream is an open file.
type Stream interface {
	io.ReadWriteSeeker
	io.Closer
}

// FileProvider is the virtual filesystem the store is built on.
type FileProvider interface {
	// Open opens path with the given mode and access.
	Open(ctx context.Context, path string, mode Mode, access Access) (Stream, error)

	// Exists reports whether path names a file.
	Exists(ctx context.Context, path string) (bool, error)
}

// Aborter is implemented by streams that can discard everything
// written since they were opened. A writer that fails midway aborts
// instead of closing so the half-written file is never published.
type Aborter interface {
	Abort() error
}

// Discard aborts stream if it supports aborting and closes it
// otherwise.
func Discard(stream Stream) error {
	if aborter, ok := stream.(Aborter); ok {
		return aborter.Abort()
	}
	return stream.Close()
}
