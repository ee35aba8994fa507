// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentindex

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/contentstore/lib/clock"
	"github.com/bureau-foundation/contentstore/lib/objectid"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// implementations runs test against every Index implementation.
func implementations(t *testing.T, test func(t *testing.T, index Index, fake *clock.FakeClock)) {
	t.Run("memory", func(t *testing.T) {
		fake := clock.Fake(epoch)
		test(t, NewMemoryIndex(fake), fake)
	})
	t.Run("sqlite", func(t *testing.T) {
		fake := clock.Fake(epoch)
		index, err := OpenSQLite(SQLiteConfig{
			Path:     filepath.Join(t.TempDir(), "index.db"),
			PoolSize: 2,
			Clock:    fake,
		})
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() {
			if err := index.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
		test(t, index, fake)
	})
}

func TestSetAndLookup(t *testing.T) {
	implementations(t, func(t *testing.T, index Index, fake *clock.FakeClock) {
		ctx := context.Background()
		first := objectid.Of([]byte("first"))
		second := objectid.Of([]byte("second"))

		if _, found, err := index.Lookup(ctx, "textures/stone"); err != nil || found {
			t.Fatalf("Lookup before Set = (%v, %v), want not found", found, err)
		}

		created, err := index.Set(ctx, "textures/stone", first, 5, map[string]string{"type": "texture"})
		if err != nil {
			t.Fatalf("Set: %v", err)
		}
		if !created.Created.Equal(epoch) || !created.Updated.Equal(epoch) {
			t.Fatalf("timestamps = (%v, %v), want %v", created.Created, created.Updated, epoch)
		}

		fake.Advance(time.Minute)
		if _, err := index.Set(ctx, "textures/stone", second, 6, nil); err != nil {
			t.Fatalf("second Set: %v", err)
		}

		entry, found, err := index.Lookup(ctx, "textures/stone")
		if err != nil || !found {
			t.Fatalf("Lookup = (%v, %v), want found", found, err)
		}
		if entry.Object != second || entry.Size != 6 {
			t.Fatalf("entry = %+v, want object %s size 6", entry, second.Short())
		}
		if !entry.Created.Equal(epoch) {
			t.Fatalf("Created = %v, want the original %v", entry.Created, epoch)
		}
		if !entry.Updated.Equal(epoch.Add(time.Minute)) {
			t.Fatalf("Updated = %v, want %v", entry.Updated, epoch.Add(time.Minute))
		}
		if len(entry.Metadata) != 0 {
			t.Fatalf("Metadata = %v, want cleared", entry.Metadata)
		}
	})
}

func TestMetadata(t *testing.T) {
	implementations(t, func(t *testing.T, index Index, _ *clock.FakeClock) {
		ctx := context.Background()
		metadata := map[string]string{"type": "material", "writer": "import"}
		if _, err := index.Set(ctx, "materials/brick", objectid.Of([]byte("brick")), 10, metadata); err != nil {
			t.Fatalf("Set: %v", err)
		}
		metadata["type"] = "mutated"

		entry, _, err := index.Lookup(ctx, "materials/brick")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		want := map[string]string{"type": "material", "writer": "import"}
		if !reflect.DeepEqual(entry.Metadata, want) {
			t.Fatalf("Metadata = %v, want %v", entry.Metadata, want)
		}
	})
}

func TestListByPrefix(t *testing.T) {
	implementations(t, func(t *testing.T, index Index, _ *clock.FakeClock) {
		ctx := context.Background()
		for _, location := range []string{"textures/b", "materials/a", "textures/a", "textures_old/c"} {
			if _, err := index.Set(ctx, location, objectid.Of([]byte(location)), 1, nil); err != nil {
				t.Fatalf("Set %s: %v", location, err)
			}
		}

		tests := []struct {
			prefix string
			want   []string
		}{
			{"textures/", []string{"textures/a", "textures/b"}},
			{"textures", []string{"textures/a", "textures/b", "textures_old/c"}},
			{"", []string{"materials/a", "textures/a", "textures/b", "textures_old/c"}},
			{"sounds/", nil},
		}
		for _, test := range tests {
			entries, err := index.List(ctx, test.prefix)
			if err != nil {
				t.Fatalf("List(%q): %v", test.prefix, err)
			}
			var got []string
			for _, entry := range entries {
				got = append(got, entry.Location)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("List(%q) = %v, want %v", test.prefix, got, test.want)
			}
		}
	})
}

func TestDelete(t *testing.T) {
	implementations(t, func(t *testing.T, index Index, _ *clock.FakeClock) {
		ctx := context.Background()
		if _, err := index.Set(ctx, "a", objectid.Of([]byte("a")), 1, nil); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := index.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, found, _ := index.Lookup(ctx, "a"); found {
			t.Fatal("deleted location is still indexed")
		}
		if err := index.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second Delete = %v, want ErrNotFound", err)
		}
	})
}

func TestSetRejectsEmptyLocation(t *testing.T) {
	implementations(t, func(t *testing.T, index Index, _ *clock.FakeClock) {
		if _, err := index.Set(context.Background(), "", objectid.Of(nil), 0, nil); err == nil {
			t.Fatal("Set with an empty location should fail")
		}
	})
}

func TestSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	id := objectid.Of([]byte("persisted"))

	first, err := OpenSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := first.Set(context.Background(), "kept", id, 9, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := OpenSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	entry, found, err := second.Lookup(context.Background(), "kept")
	if err != nil || !found || entry.Object != id {
		t.Fatalf("Lookup after reopen = (%+v, %v, %v), want the stored entry", entry, found, err)
	}
}
