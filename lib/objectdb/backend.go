// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// ErrObjectNotFound is returned by a [Backend] for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// Backend stores opaque object envelopes by key. Keys are object IDs
// in hex.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// MemoryBackend keeps objects in a map. Safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, exists := m.objects[key]
	if !exists {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return slices.Clone(data), nil
}

func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = slices.Clone(data)
	return nil
}

func (m *MemoryBackend) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; !exists {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryBackend) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// DirBackend stores each object as a file under root, fanned out by
// the first two key characters (root/ab/abcdef...). Writes are atomic.
type DirBackend struct {
	files *vfs.DirProvider
}

// NewDirBackend creates root if needed.
func NewDirBackend(root string) (*DirBackend, error) {
	files, err := vfs.NewDirProvider(root)
	if err != nil {
		return nil, err
	}
	return &DirBackend{files: files}, nil
}

func objectPath(key string) (string, error) {
	if len(key) < 3 || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return key[:2] + "/" + key, nil
}

func (d *DirBackend) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := objectPath(key)
	if err != nil {
		return nil, err
	}
	stream, err := d.files.Open(ctx, path, vfs.Open, vfs.Read)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return io.ReadAll(stream)
}

func (d *DirBackend) Put(ctx context.Context, key string, data []byte) error {
	path, err := objectPath(key)
	if err != nil {
		return err
	}
	stream, err := d.files.Open(ctx, path, vfs.Create, vfs.Write)
	if err != nil {
		return err
	}
	if _, err := stream.Write(data); err != nil {
		vfs.Discard(stream)
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	return stream.Close()
}

func (d *DirBackend) Has(ctx context.Context, key string) (bool, error) {
	path, err := objectPath(key)
	if err != nil {
		return false, err
	}
	return d.files.Exists(ctx, path)
}

func (d *DirBackend) Delete(ctx context.Context, key string) error {
	path, err := objectPath(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(d.files.Root(), filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return err
}

// List skips staging files and anything else that is not an object.
func (d *DirBackend) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(d.files.Root(), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || len(name) < 3 || filepath.Base(filepath.Dir(path)) != name[:2] {
			return nil
		}
		keys = append(keys, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}
