// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"reflect"
)

// Ref points from one content object to another of type T. It holds
// the target's location and, once bound, the target instance. A Ref
// with a location and no instance is a proxy: it names the target
// without keeping it loaded.
//
// The zero Ref is empty. Ref is a value type meant to be embedded as a
// struct field; [StructSerializer] encodes it as a reference table
// index rather than inlining the target.
type Ref[T any] struct {
	location string
	value    *T
}

// NewRef returns a Ref bound to value. location may be empty if value
// has already been loaded or saved by the store, which supplies the
// location when the referring object is saved.
func NewRef[T any](location string, value *T) Ref[T] {
	return Ref[T]{location: location, value: value}
}

// ProxyRef returns an unbound Ref to location.
func ProxyRef[T any](location string) Ref[T] {
	return Ref[T]{location: location}
}

// Location returns the target location, or "" if the Ref was created
// from an instance alone and has not been through a save or load.
func (r Ref[T]) Location() string {
	return r.location
}

// Get returns the bound instance, or nil for an empty or proxy Ref.
func (r Ref[T]) Get() *T {
	return r.value
}

// IsProxy reports whether the Ref names a location without an
// instance.
func (r Ref[T]) IsProxy() bool {
	return r.value == nil && r.location != ""
}

// IsZero reports whether the Ref is empty.
func (r Ref[T]) IsZero() bool {
	return r.value == nil && r.location == ""
}

func (r Ref[T]) String() string {
	switch {
	case r.IsZero():
		return "ref(empty)"
	case r.value == nil:
		return fmt.Sprintf("ref(%s, proxy)", r.location)
	default:
		return fmt.Sprintf("ref(%s)", r.location)
	}
}

// refTarget, refState and setRef let the struct serializer handle any
// Ref[T] through reflection without knowing T.

func (*Ref[T]) refTarget() reflect.Type {
	return reflect.TypeFor[*T]()
}

func (r *Ref[T]) refState() (string, any) {
	if r.value == nil {
		return r.location, nil
	}
	return r.location, r.value
}

func (r *Ref[T]) setRef(location string, value any) error {
	r.location = location
	if value == nil {
		r.value = nil
		return nil
	}
	typed, ok := value.(*T)
	if !ok {
		return fmt.Errorf("reference to %s resolved to %T, want %v", location, value, reflect.TypeFor[*T]())
	}
	r.value = typed
	return nil
}

// refField is implemented by *Ref[T] for every T.
type refField interface {
	refTarget() reflect.Type
	refState() (string, any)
	setRef(location string, value any) error
}

var refFieldType = reflect.TypeFor[refField]()

// isRefType reports whether t is some Ref[T].
func isRefType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(refFieldType)
}
