// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNotFound is wrapped by [NotFoundError].
	ErrNotFound = errors.New("content not found")

	// ErrNotLoaded is returned when unloading content this store
	// does not hold.
	ErrNotLoaded = errors.New("content not loaded")

	// ErrNoSerializer is wrapped by [ConfigurationError].
	ErrNoSerializer = errors.New("no serializer")

	// ErrInvariant is wrapped by [InvariantError].
	ErrInvariant = errors.New("content store invariant violated")
)

// NotFoundError reports a location with no backing file. Load treats
// it as non-fatal: the error is logged, handed to
// [Options.OnNotFound], and the load yields a nil instance.
type NotFoundError struct {
	Location string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content %s not found", e.Location)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConfigurationError reports that no serializer can handle a (stored
// type, declared type) pair, or that a stored type name is not
// registered. It means a registration is missing; retrying will not
// help. Err carries the capability scan failure behind the missing
// registration, if there was one.
type ConfigurationError struct {
	Location       string
	StoredTypeName string
	StoredType     reflect.Type
	DeclaredType   reflect.Type
	Err            error
}

func (e *ConfigurationError) Error() string {
	var message string
	if e.StoredType == nil && e.StoredTypeName != "" {
		message = fmt.Sprintf("%s: stored type %q is not registered", e.Location, e.StoredTypeName)
	} else {
		message = fmt.Sprintf("%s: no serializer for stored type %v declared as %v", e.Location, e.StoredType, e.DeclaredType)
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoSerializer}
	}
	return []error{ErrNoSerializer, e.Err}
}

// InvariantError reports caller misuse that would corrupt reference
// counts: releasing more references than were taken, or reloading an
// object through a record that does not hold it.
type InvariantError struct {
	Location string
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// LoadError wraps any failure reading a chunk.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError wraps any failure writing a chunk.
type SaveError struct {
	Location string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Location, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
