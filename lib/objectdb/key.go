// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// lockedKey holds key material in an anonymous mapping outside the Go
// heap: locked against swap, excluded from core dumps, and zeroed on
// Close.
type lockedKey struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// newLockedKey copies source into locked memory and zeroes source.
func newLockedKey(source []byte) (*lockedKey, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("key is empty")
	}
	data, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mapping key memory: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("locking key memory: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("excluding key memory from core dumps: %w", err)
	}
	copy(data, source)
	clear(source)
	return &lockedKey{data: data}, nil
}

// use calls fn with the key bytes. fn must not retain them.
func (k *lockedKey) use(fn func(key []byte) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return fmt.Errorf("sealing key is closed")
	}
	return fn(k.data)
}

func (k *lockedKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	clear(k.data)
	var errs []error
	if err := unix.Munlock(k.data); err != nil {
		errs = append(errs, fmt.Errorf("unlocking key memory: %w", err))
	}
	if err := unix.Munmap(k.data); err != nil {
		errs = append(errs, fmt.Errorf("unmapping key memory: %w", err))
	}
	k.data = nil
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// readKeyFile reads a sealing key: either KeySize raw bytes or their
// hex encoding, surrounding whitespace ignored. The heap copies are
// zeroed before returning.
func readKeyFile(path string) (*lockedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sealing key: %w", err)
	}
	defer clear(data)

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(data) == KeySize:
		return newLockedKey(data)
	case len(trimmed) == hex.EncodedLen(KeySize):
		decoded := make([]byte, KeySize)
		defer clear(decoded)
		if _, err := hex.Decode(decoded, trimmed); err != nil {
			return nil, fmt.Errorf("sealing key %s is not valid hex: %w", path, err)
		}
		return newLockedKey(decoded)
	default:
		return nil, fmt.Errorf("sealing key %s must be %d raw bytes or %d hex characters", path, KeySize, hex.EncodedLen(KeySize))
	}
}
