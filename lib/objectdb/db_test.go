// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/contentindex"
	"github.com/bureau-foundation/contentstore/lib/objectid"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

type testDB struct {
	*DB
	backend *MemoryBackend
	index   *contentindex.MemoryIndex
}

func newTestDB(t *testing.T, configure ...func(*Options)) testDB {
	t.Helper()
	backend := NewMemoryBackend()
	index := contentindex.NewMemoryIndex(nil)
	options := Options{Backend: backend, Index: index, Compression: CompressionAuto}
	for _, apply := range configure {
		apply(&options)
	}
	db, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return testDB{DB: db, backend: backend, index: index}
}

func (db testDB) storedObject(t *testing.T, id objectid.ID) []byte {
	t.Helper()
	object, err := db.backend.Get(context.Background(), id.String())
	if err != nil {
		t.Fatalf("object %s: %v", id.Short(), err)
	}
	return object
}

var body = []byte(strings.Repeat("brick wall, red, 512x512\n", 64))

func TestNewRequiresBackendAndIndex(t *testing.T) {
	if _, err := New(Options{Index: contentindex.NewMemoryIndex(nil)}); err == nil {
		t.Fatal("New without a backend should fail")
	}
	if _, err := New(Options{Backend: NewMemoryBackend()}); err == nil {
		t.Fatal("New without an index should fail")
	}
}

func TestPutGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	entry, err := db.Put(ctx, "materials/brick", body)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Object != objectid.Of(body) {
		t.Fatalf("entry object = %s, want %s", entry.Object, objectid.Of(body))
	}
	if entry.Size != int64(len(body)) {
		t.Fatalf("entry size = %d, want %d", entry.Size, len(body))
	}

	data, got, err := db.Get(ctx, "materials/brick")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Fatal("Get returned different bytes")
	}
	if got.Object != entry.Object {
		t.Fatalf("Get entry object = %s, want %s", got.Object, entry.Object)
	}

	object := db.storedObject(t, entry.Object)
	if len(object) >= len(body) {
		t.Fatalf("stored object is %d bytes for a %d byte repetitive body", len(object), len(body))
	}
	header, err := decodeEnvelopeHeader(object)
	if err != nil {
		t.Fatalf("decodeEnvelopeHeader: %v", err)
	}
	if header.compression != CompressionZstd || header.sealed || header.size != uint64(len(body)) {
		t.Fatalf("envelope = %+v, want zstd, unsealed, %d bytes", header, len(body))
	}
}

func TestPutDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	first, err := db.Put(ctx, "a", body)
	if err != nil {
		t.Fatalf("Put(a): %v", err)
	}
	second, err := db.Put(ctx, "b", body)
	if err != nil {
		t.Fatalf("Put(b): %v", err)
	}
	if first.Object != second.Object {
		t.Fatal("identical bytes produced two objects")
	}
	keys, _ := db.backend.List(ctx)
	if len(keys) != 1 {
		t.Fatalf("backend holds %d objects, want 1", len(keys))
	}
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)
	_, _, err := db.Get(context.Background(), "missing")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Get(missing) = %v, want fs.ErrNotExist", err)
	}
	if _, err := db.Open(context.Background(), "missing", vfs.Open, vfs.Read); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open(missing) = %v, want fs.ErrNotExist", err)
	}
}

func TestOpenModes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stream, err := db.Open(ctx, "notes", vfs.Create, vfs.Write)
	if err != nil {
		t.Fatalf("Open(Create): %v", err)
	}
	io.WriteString(stream, "first draft")
	if exists, _ := db.Exists(ctx, "notes"); exists {
		t.Fatal("location visible before Close")
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if exists, _ := db.Exists(ctx, "notes"); !exists {
		t.Fatal("location missing after Close")
	}

	stream, err = db.Open(ctx, "notes", vfs.Open, vfs.ReadWrite)
	if err != nil {
		t.Fatalf("Open(ReadWrite): %v", err)
	}
	stream.Seek(0, io.SeekEnd)
	io.WriteString(stream, ", revised")
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stream, err = db.Open(ctx, "notes", vfs.Open, vfs.Read)
	if err != nil {
		t.Fatalf("Open(Read): %v", err)
	}
	data, _ := io.ReadAll(stream)
	stream.Close()
	if string(data) != "first draft, revised" {
		t.Fatalf("contents = %q, want %q", data, "first draft, revised")
	}
	if _, err := stream.Write([]byte("x")); err == nil {
		t.Fatal("write to a closed read stream should fail")
	}

	stream, err = db.Open(ctx, "fresh", vfs.OpenOrCreate, vfs.ReadWrite)
	if err != nil {
		t.Fatalf("Open(OpenOrCreate): %v", err)
	}
	if data, _ := io.ReadAll(stream); len(data) != 0 {
		t.Fatalf("new file contents = %q, want empty", data)
	}
	stream.Close()

	if _, err := db.Open(ctx, "", vfs.Open, vfs.Read); !errors.Is(err, fs.ErrInvalid) {
		t.Fatalf("Open(\"\") = %v, want fs.ErrInvalid", err)
	}
}

func TestAbortedWriteIsNotPublished(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	stream, err := db.Open(ctx, "draft", vfs.Create, vfs.Write)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	io.WriteString(stream, "half")
	if err := vfs.Discard(stream); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if exists, _ := db.Exists(ctx, "draft"); exists {
		t.Fatal("discarded write was published")
	}
}

func TestPutRecordsChunkType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var chunkBytes bytes.Buffer
	if err := chunk.NewHeader("game.Material").Write(&chunkBytes); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	chunkBytes.WriteString("body")
	entry, err := db.Put(ctx, "materials/brick", chunkBytes.Bytes())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Metadata[MetadataType] != "game.Material" {
		t.Fatalf("metadata = %v, want type game.Material", entry.Metadata)
	}

	entry, err = db.Put(ctx, "raw", []byte("no header"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(entry.Metadata) != 0 {
		t.Fatalf("headerless metadata = %v, want none", entry.Metadata)
	}
}

func TestCompressionFor(t *testing.T) {
	db := newTestDB(t, func(options *Options) {
		options.CompressionFor = func(location string) (Compression, bool) {
			if strings.HasPrefix(location, "raw/") {
				return CompressionNone, true
			}
			return 0, false
		}
	})
	ctx := context.Background()
	stored, err := db.Put(ctx, "raw/texture", body)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	header, _ := decodeEnvelopeHeader(db.storedObject(t, stored.Object))
	if header.compression != CompressionNone {
		t.Fatalf("raw/ compression = %s, want none", header.compression)
	}

	other := append(bytes.Clone(body), "lz4 please"...)
	db.compression = CompressionLZ4
	stored, err = db.Put(ctx, "materials/brick", other)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	header, _ = decodeEnvelopeHeader(db.storedObject(t, stored.Object))
	if header.compression != CompressionLZ4 {
		t.Fatalf("default compression = %s, want lz4", header.compression)
	}
}

func TestSealedDB(t *testing.T) {
	sealer := newTestSealer(t, 5)
	db := newTestDB(t, func(options *Options) { options.Sealer = sealer })
	ctx := context.Background()
	secret := []byte(strings.Repeat("launch codes ", 20))
	entry, err := db.Put(ctx, "secrets/codes", secret)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	object := db.storedObject(t, entry.Object)
	if bytes.Contains(object, []byte("launch codes")) {
		t.Fatal("sealed object contains plaintext")
	}
	if data, _, err := db.Get(ctx, "secrets/codes"); err != nil || !bytes.Equal(data, secret) {
		t.Fatalf("Get = %q, %v", data, err)
	}

	unsealed, err := New(Options{Backend: db.backend, Index: db.index})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := unsealed.Get(ctx, "secrets/codes"); err == nil {
		t.Fatal("a DB without the key read a sealed object")
	}

	wrongKey, err := New(Options{Backend: db.backend, Index: db.index, Sealer: newTestSealer(t, 6)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := wrongKey.Get(ctx, "secrets/codes"); err == nil {
		t.Fatal("a DB with the wrong key read a sealed object")
	}
}

func TestCorruptionDetected(t *testing.T) {
	db := newTestDB(t, func(options *Options) { options.Compression = CompressionNone })
	ctx := context.Background()
	entry, err := db.Put(ctx, "materials/brick", body)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	key := entry.Object.String()

	tests := []struct {
		name    string
		corrupt func(object []byte) []byte
	}{
		{"flipped body byte", func(object []byte) []byte {
			object[envelopeHeaderSize+3] ^= 0x20
			return object
		}},
		{"bad magic", func(object []byte) []byte {
			object[0] = 'X'
			return object
		}},
		{"unknown version", func(object []byte) []byte {
			object[4] = 9
			return object
		}},
		{"unknown flag", func(object []byte) []byte {
			object[6] = 0x80
			return object
		}},
		{"truncated", func(object []byte) []byte {
			return object[:envelopeHeaderSize-1]
		}},
		{"truncated body", func(object []byte) []byte {
			return object[:len(object)-1]
		}},
	}
	original := db.storedObject(t, entry.Object)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db.backend.Put(ctx, key, test.corrupt(bytes.Clone(original)))
			if _, _, err := db.Get(ctx, "materials/brick"); err == nil {
				t.Fatal("Get accepted a corrupt object")
			}
		})
	}
}

func TestRemoveAndPrune(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kept, _ := db.Put(ctx, "kept", []byte("kept"))
	if _, err := db.Put(ctx, "replaced", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := db.Put(ctx, "replaced", []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := db.Put(ctx, "removed", []byte("gone")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Remove(ctx, "removed"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := db.Remove(ctx, "removed"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("second Remove = %v, want fs.ErrNotExist", err)
	}

	result, err := db.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if result != (PruneResult{Kept: 2, Removed: 2}) {
		t.Fatalf("Prune = %+v, want 2 kept, 2 removed", result)
	}
	if exists, _ := db.backend.Has(ctx, kept.Object.String()); !exists {
		t.Fatal("Prune removed a live object")
	}
	if data, _, err := db.Get(ctx, "replaced"); err != nil || string(data) != "new" {
		t.Fatalf("Get(replaced) = %q, %v", data, err)
	}

	result, err = db.Prune(ctx)
	if err != nil {
		t.Fatalf("second Prune: %v", err)
	}
	if result.Removed != 0 {
		t.Fatalf("second Prune removed %d objects", result.Removed)
	}
}
