// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/contentstore/lib/vfs"
)

func asInvariant(err error, target **InvariantError) bool {
	return errors.As(err, target) && errors.Is(err, ErrInvariant)
}

func TestReferenceCountBalance(t *testing.T) {
	tests := []struct {
		name  string
		steps []bool // true = public
	}{
		{name: "public only", steps: []bool{true}},
		{name: "private only", steps: []bool{false}},
		{name: "mixed", steps: []bool{true, false, true, false, false}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newTestStore(t, vfs.NewMemoryProvider())
			r := newRecord("loc", &texture{})
			r.deserialized = true
			store.insert(r)
			// Keep the record out of the collector's reach while it
			// holds only private references.
			anchor := newRecord("anchor", &texture{})
			anchor.deserialized = true
			store.insert(anchor)
			store.increment(anchor, true)
			anchor.addChild(r)

			for _, public := range test.steps {
				store.increment(r, public)
			}
			for index, public := range test.steps {
				if _, live := store.byInstance[r.instance]; !live {
					t.Fatalf("record freed after %d of %d decrements", index, len(test.steps))
				}
				if err := store.decrement(r, public); err != nil {
					t.Fatalf("decrement %d: %v", index, err)
				}
			}
			if _, live := store.byInstance[r.instance]; live {
				t.Fatal("record should be freed once both counts reach zero")
			}

			var invariant *InvariantError
			if err := store.decrement(r, true); !asInvariant(err, &invariant) {
				t.Fatalf("public decrement past zero = %v, want *InvariantError", err)
			}
			if err := store.decrement(r, false); !asInvariant(err, &invariant) {
				t.Fatalf("private decrement past zero = %v, want *InvariantError", err)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	store := newTestStore(t, vfs.NewMemoryProvider())
	head := newRecord("loc", &texture{Name: "head"})
	second := newRecord("loc", &texture{Name: "second"})
	third := newRecord("loc", &texture{Name: "third"})
	store.insert(head)
	store.insert(second)
	store.insert(third)

	var order []string
	for r := store.byLocation["loc"]; r != nil; r = r.next {
		order = append(order, r.instance.(*texture).Name)
	}
	want := []string{"head", "third", "second"}
	for index := range want {
		if index >= len(order) || order[index] != want[index] {
			t.Fatalf("chain = %v, want %v", order, want)
		}
	}

	store.remove(head)
	if store.byLocation["loc"] != third {
		t.Fatalf("head after removing the first record = %v, want third", store.byLocation["loc"].instance)
	}
	store.relocate(second, "elsewhere")
	if store.byLocation["elsewhere"] != second || third.next != nil {
		t.Fatal("relocate should move the record to its own chain")
	}
	store.remove(third)
	if _, exists := store.byLocation["loc"]; exists {
		t.Fatal("empty chain should leave the location table")
	}
}

func TestCheckInstance(t *testing.T) {
	var nilTexture *texture
	tests := []struct {
		name     string
		instance any
		valid    bool
	}{
		{name: "pointer", instance: &texture{}, valid: true},
		{name: "nil", instance: nil},
		{name: "nil pointer", instance: nilTexture},
		{name: "value", instance: texture{}},
		{name: "map", instance: map[string]int{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := checkInstance(test.instance)
			if (err == nil) != test.valid {
				t.Fatalf("checkInstance(%T) = %v, want valid=%v", test.instance, err, test.valid)
			}
		})
	}
}
