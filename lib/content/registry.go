// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/bureau-foundation/contentstore/lib/typeregistry"
)

// Registry selects serializers by type. Serializers are indexed under
// both their actual and stored types. Safe for concurrent use.
type Registry struct {
	types *typeregistry.Registry

	mu      sync.RWMutex
	byType  map[reflect.Type][]Serializer
	scanned map[reflect.Type]bool
	// scanErrors holds the failure of each type whose scan failed.
	scanErrors map[reflect.Type]error
}

// NewRegistry returns an empty registry that names stored types in
// types. A nil types gets a fresh [typeregistry.Registry].
func NewRegistry(types *typeregistry.Registry) *Registry {
	if types == nil {
		types = typeregistry.New()
	}
	return &Registry{
		types:   types,
		byType:     make(map[reflect.Type][]Serializer),
		scanned:    make(map[reflect.Type]bool),
		scanErrors: make(map[reflect.Type]error),
	}
}

// Types returns the type registry stored type names resolve through.
func (r *Registry) Types() *typeregistry.Registry {
	return r.types
}

// Register adds s. Its stored type, if any, is registered in the type
// registry under its default name unless it already has one. Two
// serializers with the same (stored, actual) pair conflict.
func (r *Registry) Register(s Serializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(s)
}

func (r *Registry) registerLocked(s Serializer) error {
	actual := s.ActualType()
	if actual == nil {
		return fmt.Errorf("serializer %T has no actual type", s)
	}
	stored := s.StoredType()
	for _, existing := range r.byType[actual] {
		if existing.StoredType() == stored {
			return fmt.Errorf("serializer for %v (stored as %v) is already registered", actual, stored)
		}
	}

	if stored != nil {
		if _, named := r.types.NameOf(stored); !named {
			if _, err := r.types.RegisterType(stored); err != nil {
				return fmt.Errorf("naming stored type of %T: %w", s, err)
			}
		}
	}

	r.byType[actual] = append(r.byType[actual], s)
	if stored != nil && stored != actual {
		r.byType[stored] = append(r.byType[stored], s)
	}
	return nil
}

// RegisterTypes runs the capability scan over types: each type, or
// pointer to it, that implements [SerializerProvider] contributes its
// serializer. Scan results are cached, so listing a type twice (or
// scanning it again lazily from [Registry.GetSerializer]) is harmless.
func (r *Registry) RegisterTypes(types ...reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, t := range types {
		if err := r.scanLocked(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) scanLocked(t reflect.Type) error {
	if t == nil || r.scanned[t] {
		return nil
	}
	r.scanned[t] = true
	err := r.scanProviderLocked(t)
	if err != nil {
		r.scanErrors[t] = err
	}
	return err
}

func (r *Registry) scanProviderLocked(t reflect.Type) error {
	provider := providerFor(t)
	if provider == nil {
		return nil
	}
	serializer := provider.ContentSerializer()
	if serializer == nil {
		return fmt.Errorf("%v provided a nil serializer", t)
	}
	for _, existing := range r.byType[serializer.ActualType()] {
		if existing.StoredType() == serializer.StoredType() {
			return nil
		}
	}
	if err := r.registerLocked(serializer); err != nil {
		return fmt.Errorf("registering serializer provided by %v: %w", t, err)
	}
	return nil
}

var anyType = reflect.TypeFor[any]()

// providerFor returns a SerializerProvider for t or *t, or nil.
func providerFor(t reflect.Type) SerializerProvider {
	if t.Kind() == reflect.Interface {
		return nil
	}
	if t.Implements(providerType) {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface().(SerializerProvider)
		}
		return reflect.Zero(t).Interface().(SerializerProvider)
	}
	if reflect.PointerTo(t).Implements(providerType) {
		return reflect.New(t).Interface().(SerializerProvider)
	}
	return nil
}

// GetSerializer returns a serializer whose actual type is assignable
// to declared and, when stored is non-nil, whose stored type is
// exactly stored. Serializers registered under declared are tried
// before those registered under stored. Both types are scanned for
// providers on first use. A nil declared type means any. Returns nil
// if nothing matches; [Registry.Scan] reports why a scan came up
// empty.
func (r *Registry) GetSerializer(stored, declared reflect.Type) Serializer {
	if declared == nil {
		declared = anyType
	}
	r.Scan(declared, stored)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range []reflect.Type{declared, stored} {
		if key == nil {
			continue
		}
		for _, candidate := range r.byType[key] {
			if !candidate.ActualType().AssignableTo(declared) {
				continue
			}
			if stored != nil && candidate.StoredType() != stored {
				continue
			}
			return candidate
		}
	}
	return nil
}

// Scan runs the capability scan over any of types not yet scanned and
// returns the scan failures recorded for all of them, including those
// from earlier scans. Nil types are skipped.
func (r *Registry) Scan(types ...reflect.Type) error {
	r.mu.RLock()
	pending := false
	for _, t := range types {
		if t != nil && !r.scanned[t] {
			pending = true
		}
	}
	r.mu.RUnlock()
	if pending {
		r.RegisterTypes(types...)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, t := range types {
		if err := r.scanErrors[t]; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
