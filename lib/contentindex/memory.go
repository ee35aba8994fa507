// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentindex

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/contentstore/lib/clock"
	"github.com/bureau-foundation/contentstore/lib/objectid"
)

// MemoryIndex is an [Index] held in a map. Safe for concurrent use.
type MemoryIndex struct {
	clock clock.Clock

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryIndex returns an empty index timestamping with timeSource
// (the real clock if nil).
func NewMemoryIndex(timeSource clock.Clock) *MemoryIndex {
	if timeSource == nil {
		timeSource = clock.Real()
	}
	return &MemoryIndex{clock: timeSource, entries: make(map[string]Entry)}
}

// Lookup implements [Index].
func (m *MemoryIndex) Lookup(ctx context.Context, location string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, found := m.entries[location]
	return cloneEntry(entry), found, nil
}

// Set implements [Index].
func (m *MemoryIndex) Set(ctx context.Context, location string, object objectid.ID, size int64, metadata map[string]string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if location == "" {
		return Entry{}, fmt.Errorf("indexing object %s: empty location", object.Short())
	}
	now := m.clock.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, exists := m.entries[location]
	if !exists {
		entry = Entry{Location: location, Created: now}
	}
	entry.Object = object
	entry.Size = size
	entry.Updated = now
	entry.Metadata = maps.Clone(metadata)
	m.entries[location] = entry
	return cloneEntry(entry), nil
}

// Delete implements [Index].
func (m *MemoryIndex) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[location]; !exists {
		return fmt.Errorf("deleting %s: %w", location, ErrNotFound)
	}
	delete(m.entries, location)
	return nil
}

// List implements [Index].
func (m *MemoryIndex) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []Entry
	for location, entry := range m.entries {
		if strings.HasPrefix(location, prefix) {
			entries = append(entries, cloneEntry(entry))
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Location, b.Location)
	})
	return entries, nil
}

// Close implements [Index].
func (m *MemoryIndex) Close() error {
	return nil
}

func cloneEntry(entry Entry) Entry {
	entry.Metadata = maps.Clone(entry.Metadata)
	return entry
}
