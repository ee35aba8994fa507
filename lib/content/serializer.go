// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"reflect"
)

// Mode is the direction of a (de)serialization pass.
type Mode int

const (
	// Deserialize reads a chunk into an instance.
	Deserialize Mode = iota
	// Serialize writes an instance into a chunk.
	Serialize
)

func (m Mode) String() string {
	if m == Serialize {
		return "serialize"
	}
	return "deserialize"
}

// Serializer converts one kind of object to and from a chunk body.
// A single Serialize method handles both directions; ctx.Mode says
// which.
type Serializer interface {
	// StoredType is the type named in the chunk header. A nil stored
	// type means the serializer writes headerless chunks: raw bodies
	// with no reference table.
	StoredType() reflect.Type

	// ActualType is the runtime type of instances this serializer
	// produces. It must be assignable to whatever declared type a
	// caller loads with.
	ActualType() reflect.Type

	// Construct returns a fresh instance to deserialize into.
	Construct(ctx *Context) (any, error)

	// Serialize writes obj to stream (ctx.Mode == Serialize) or fills
	// obj from stream (ctx.Mode == Deserialize).
	Serialize(ctx *Context, stream *Stream, obj any) error
}

// SerializerProvider is implemented by types that declare their own
// serializer. The method is called on a zero value (a fresh pointer
// for pointer receivers) and must not depend on its receiver's state.
type SerializerProvider interface {
	ContentSerializer() Serializer
}

var providerType = reflect.TypeFor[SerializerProvider]()
