// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// ErrReadOnly is returned by writes to a stream opened without write
// access. ErrWriteOnly is the read-side counterpart.
var (
	ErrReadOnly  = errors.New("stream is read-only")
	ErrWriteOnly = errors.New("stream is write-only")
)

// StagingStream is a seekable in-memory file. It adapts destinations
// that cannot seek to the chunk writer's reserve-then-patch header
// protocol: the whole object is staged here and handed to the flush
// function on Close.
type StagingStream struct {
	data     []byte
	position int64
	access   Access
	flush    func(data []byte) error
	closed   bool
}

// NewStagingStream returns a stream positioned at offset 0 over data.
// The stream takes ownership of data. When access includes [Write],
// flush (if non-nil) receives the final contents on Close; a flush
// error is returned from Close.
func NewStagingStream(data []byte, access Access, flush func(data []byte) error) *StagingStream {
	return &StagingStream{data: data, access: access, flush: flush}
}

// NewReader returns a read-only staging stream over data.
func NewReader(data []byte) *StagingStream {
	return NewStagingStream(data, Read, nil)
}

// Read implements io.Reader.
func (s *StagingStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	if !s.access.CanRead() {
		return 0, ErrWriteOnly
	}
	if s.position >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.position:])
	s.position += int64(n)
	return n, nil
}

// Write implements io.Writer. Writing past the end extends the file;
// a gap left by seeking past the end reads back as zeros.
func (s *StagingStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	if !s.access.CanWrite() {
		return 0, ErrReadOnly
	}
	end := s.position + int64(len(p))
	if end > int64(len(s.data)) {
		if end > int64(cap(s.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(s.data))))
			copy(grown, s.data)
			s.data = grown
		} else {
			tail := s.data[len(s.data):end]
			clear(tail)
			s.data = s.data[:end]
		}
	}
	copy(s.data[s.position:], p)
	s.position = end
	return len(p), nil
}

// Seek implements io.Seeker. Seeking past the end is allowed.
func (s *StagingStream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.position
	case io.SeekEnd:
		base = int64(len(s.data))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	target := base + offset
	if target < 0 {
		return 0, fmt.Errorf("seek: negative position %d", target)
	}
	s.position = target
	return target, nil
}

// Len returns the current file size.
func (s *StagingStream) Len() int {
	return len(s.data)
}

// Bytes returns the staged contents. The slice aliases the stream's
// buffer until the next write.
func (s *StagingStream) Bytes() []byte {
	return s.data
}

// Close flushes a writable stream. Closing twice returns fs.ErrClosed.
func (s *StagingStream) Close() error {
	if s.closed {
		return fs.ErrClosed
	}
	s.closed = true
	if s.access.CanWrite() && s.flush != nil {
		if err := s.flush(s.data); err != nil {
			return fmt.Errorf("flushing staged file: %w", err)
		}
	}
	return nil
}

// Abort closes the stream without flushing.
func (s *StagingStream) Abort() error {
	if s.closed {
		return fs.ErrClosed
	}
	s.closed = true
	return nil
}
