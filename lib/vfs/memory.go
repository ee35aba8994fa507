// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"context"
	"io/fs"
	"slices"
	"strings"
	"sync"
)

// MemoryProvider is a [FileProvider] holding every file in memory.
// Each Open works on a private copy; a writable stream publishes its
// contents when closed, so readers never observe a half-written chunk.
// Safe for concurrent use.
type MemoryProvider struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{files: make(map[string][]byte)}
}

// Open implements [FileProvider].
func (p *MemoryProvider) Open(ctx context.Context, path string, mode Mode, access Access) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	existing, exists := p.files[path]
	var data []byte
	switch mode {
	case Open:
		if !exists {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		data = slices.Clone(existing)
	case OpenOrCreate:
		if !exists {
			p.files[path] = []byte{}
		}
		data = slices.Clone(existing)
	case Create:
		p.files[path] = []byte{}
	default:
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}

	return NewStagingStream(data, access, func(contents []byte) error {
		p.mu.Lock()
		p.files[path] = slices.Clone(contents)
		p.mu.Unlock()
		return nil
	}), nil
}

// Exists implements [FileProvider].
func (p *MemoryProvider) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.files[path]
	return exists, nil
}

// ReadFile returns a copy of the file at path.
func (p *MemoryProvider) ReadFile(path string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, exists := p.files[path]
	return slices.Clone(data), exists
}

// WriteFile replaces the file at path.
func (p *MemoryProvider) WriteFile(path string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[path] = slices.Clone(data)
}

// Remove deletes path. Removing a missing file is not an error.
func (p *MemoryProvider) Remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.files, path)
}

// List returns the sorted paths that start with prefix.
func (p *MemoryProvider) List(prefix string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var paths []string
	for path := range p.files {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths
}
