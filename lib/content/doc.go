// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package content defines how runtime objects become chunk bodies and
// back: the [Serializer] contract, the [Registry] that picks a
// serializer for a (stored type, declared type) pair, the per-chunk
// [Context] that turns references between objects into reference
// table indexes, and the [Ref] type objects use to point at other
// content.
//
// The default serializer for a struct type is [StructSerializer]. It
// writes each exported field as one CBOR item in declaration order,
// except [Ref] fields, which it writes as the integer index of the
// referenced (type, location) pair in the chunk's reference table.
// Reading reverses this: the index is looked up in the table and, when
// the caller asked for references to be loaded, bound to the instance
// the store resolves for that location.
//
// A type opts into a serializer by implementing [SerializerProvider];
// [Registry.RegisterTypes] discovers providers and caches the result
// per type. The registry is an explicit object owned by the store;
// there is no process-wide serializer table.
package content
