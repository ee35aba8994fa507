// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirProvider is a [FileProvider] rooted at a directory on the local
// filesystem. Paths are slash-separated and must stay inside the root.
//
// Files opened with [Create] are written to a temporary file in the
// destination directory and renamed into place on Close, so a crash
// mid-write never leaves a truncated chunk under the real name.
type DirProvider struct {
	root string
}

// NewDirProvider returns a provider rooted at root. The directory is
// created if it does not exist.
func NewDirProvider(root string) (*DirProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating content root %s: %w", root, err)
	}
	return &DirProvider{root: root}, nil
}

// Root returns the provider's root directory.
func (p *DirProvider) Root() string {
	return p.root
}

// resolve maps a content path to a filesystem path, rejecting
// absolute paths and any path that escapes the root.
func (p *DirProvider) resolve(path string) (string, error) {
	local := filepath.FromSlash(path)
	if path == "" || !filepath.IsLocal(local) {
		return "", &fs.PathError{Op: "resolve", Path: path, Err: fs.ErrInvalid}
	}
	return filepath.Join(p.root, local), nil
}

// Open implements [FileProvider].
func (p *DirProvider) Open(ctx context.Context, path string, mode Mode, access Access) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := p.resolve(path)
	if err != nil {
		return nil, err
	}

	var flags int
	switch {
	case access.CanRead() && access.CanWrite():
		flags = os.O_RDWR
	case access.CanWrite():
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}

	switch mode {
	case Open:
		file, err := os.OpenFile(fullPath, flags, 0)
		if err != nil {
			return nil, err
		}
		return file, nil
	case OpenOrCreate:
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
		file, err := os.OpenFile(fullPath, flags|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}
		return file, nil
	case Create:
		return p.createAtomic(path, fullPath)
	default:
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}
}

// createAtomic ignores the requested access: the staging file is
// always read-write so the chunk writer can patch its header.
func (p *DirProvider) createAtomic(path, fullPath string) (Stream, error) {
	directory := filepath.Dir(fullPath)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	temporary, err := os.CreateTemp(directory, ".staging-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating staging file for %s: %w", path, err)
	}
	return &atomicFile{File: temporary, finalPath: fullPath}, nil
}

// atomicFile renames its temporary file over finalPath on Close.
type atomicFile struct {
	*os.File
	finalPath string
	closed    bool
}

func (f *atomicFile) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	temporaryPath := f.File.Name()

	if err := f.File.Sync(); err != nil {
		f.File.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing %s: %w", f.finalPath, err)
	}
	if err := f.File.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", f.finalPath, err)
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("setting mode of %s: %w", f.finalPath, err)
	}
	if err := os.Rename(temporaryPath, f.finalPath); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", f.finalPath, err)
	}
	return nil
}

// Abort discards the temporary file.
func (f *atomicFile) Abort() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	f.File.Close()
	return os.Remove(f.File.Name())
}

// Exists implements [FileProvider].
func (p *DirProvider) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := p.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
