// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package typeregistry maps the type names stored in chunk headers to
// runtime type descriptors and back.
//
// A chunk header records the stored type of its object as a string so
// that a reader can pick a serializer before decoding anything. The
// registry is the only place those strings are minted and resolved:
// the save path asks [Registry.NameOf] for the name to write, the load
// path asks [Registry.Resolve] for the type a name denotes. Names are
// stable across builds as long as the registration is.
package typeregistry

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry is a bidirectional name ↔ type table. Safe for concurrent
// use. The zero value is not usable; call [New].
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// DefaultName returns the name a type is registered under when the
// caller does not choose one: the package path and type name of the
// type, or of the type it points to. Unnamed types have no default
// name and yield "".
func DefaultName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// Register binds name to t. Registering the same pair twice is a
// no-op. Binding a name to a second type, or a type to a second name,
// is an error: either would make existing chunks ambiguous.
func (r *Registry) Register(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("registering %v: empty type name", t)
	}
	if t == nil {
		return fmt.Errorf("registering %q: nil type", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("type name %q is already registered to %v", name, existing)
	}
	if existing, ok := r.byType[t]; ok {
		return fmt.Errorf("type %v is already registered as %q", t, existing)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// RegisterType binds t to its [DefaultName] and returns that name.
func (r *Registry) RegisterType(t reflect.Type) (string, error) {
	name := DefaultName(t)
	if name == "" {
		return "", fmt.Errorf("type %v has no default name; register it with an explicit name", t)
	}
	return name, r.Register(name, t)
}

// MustRegister is [Registry.Register] for package initialization. It
// panics on conflict.
func (r *Registry) MustRegister(name string, t reflect.Type) {
	if err := r.Register(name, t); err != nil {
		panic("typeregistry: " + err.Error())
	}
}

// Resolve returns the type registered under name.
func (r *Registry) Resolve(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// NameOf returns the name t is registered under.
func (r *Registry) NameOf(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byType[t]
	return name, ok
}

// Names returns every registered name in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
