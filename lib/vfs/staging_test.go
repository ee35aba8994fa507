// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestStagingStreamPatchInPlace(t *testing.T) {
	var flushed []byte
	stream := NewStagingStream(nil, ReadWrite, func(data []byte) error {
		flushed = bytes.Clone(data)
		return nil
	})

	// Reserve a 4-byte header, write a body, then patch the header.
	stream.Write([]byte{0, 0, 0, 0})
	stream.Write([]byte("body"))
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	stream.Write([]byte("HDR!"))

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if string(flushed) != "HDR!body" {
		t.Errorf("flushed %q, want %q", flushed, "HDR!body")
	}
}

func TestStagingStreamSeekPastEnd(t *testing.T) {
	stream := NewStagingStream([]byte("ab"), ReadWrite, nil)
	if _, err := stream.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	stream.Write([]byte("z"))
	if got := stream.Bytes(); !bytes.Equal(got, []byte{'a', 'b', 0, 0, 'z'}) {
		t.Errorf("contents = %v, want gap filled with zeros", got)
	}

	position, err := stream.Seek(-1, io.SeekEnd)
	if err != nil || position != 4 {
		t.Fatalf("Seek(-1, End) = (%d, %v), want (4, nil)", position, err)
	}
	if _, err := stream.Seek(-10, io.SeekCurrent); err == nil {
		t.Error("Seek to a negative position succeeded")
	}
	if _, err := stream.Seek(0, 42); err == nil {
		t.Error("Seek with invalid whence succeeded")
	}
}

func TestStagingStreamReuseCapacityZeroesGap(t *testing.T) {
	backing := make([]byte, 2, 16)
	copy(backing[:8], "abXXXXXX")
	stream := NewStagingStream(backing, Write, nil)
	stream.Seek(5, io.SeekStart)
	stream.Write([]byte("!"))
	if got := stream.Bytes(); !bytes.Equal(got, []byte{'a', 'b', 0, 0, 0, '!'}) {
		t.Errorf("contents = %q, want stale capacity cleared", got)
	}
}

func TestStagingStreamAccess(t *testing.T) {
	reader := NewReader([]byte("data"))
	if _, err := reader.Write([]byte("x")); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Write on read-only = %v, want ErrReadOnly", err)
	}
	all, err := io.ReadAll(reader)
	if err != nil || string(all) != "data" {
		t.Errorf("ReadAll = (%q, %v), want (data, nil)", all, err)
	}

	writer := NewStagingStream(nil, Write, nil)
	if _, err := writer.Read(make([]byte, 1)); !errors.Is(err, ErrWriteOnly) {
		t.Errorf("Read on write-only = %v, want ErrWriteOnly", err)
	}
}

func TestStagingStreamClose(t *testing.T) {
	flushError := errors.New("disk full")
	stream := NewStagingStream(nil, Write, func([]byte) error { return flushError })
	if err := stream.Close(); !errors.Is(err, flushError) {
		t.Errorf("Close = %v, want wrapped flush error", err)
	}
	if err := stream.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close = %v, want fs.ErrClosed", err)
	}
	if _, err := stream.Write([]byte("x")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Write after Close = %v, want fs.ErrClosed", err)
	}

	flushed := false
	readOnly := NewStagingStream(nil, Read, func([]byte) error { flushed = true; return nil })
	readOnly.Close()
	if flushed {
		t.Error("read-only stream flushed on Close")
	}
}

func TestStagingStreamAbort(t *testing.T) {
	flushed := false
	stream := NewStagingStream(nil, Write, func([]byte) error { flushed = true; return nil })
	stream.Write([]byte("half"))
	if err := Discard(stream); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if flushed {
		t.Error("aborted stream flushed")
	}
	if err := stream.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Close after Abort = %v, want fs.ErrClosed", err)
	}
}
