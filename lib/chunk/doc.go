// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk implements the on-disk framing of one serialized
// content object: a fixed-layout [Header] followed by the object body
// and a [ReferenceTable].
//
// Layout (little-endian, version 1):
//
//	offset 0:   4 bytes  magic "CHNK"
//	offset 4:   int32    version (1)
//	offset 8:   string   stored type name (uvarint length + UTF-8)
//	offset X:   int32    offset to object body
//	offset X+4: int32    offset to reference table
//	...         object body, written by the selected serializer
//	...         reference table: uvarint count, then (type, location)
//	            string pairs
//
// The header is written twice. The writer emits it first with both
// offsets at -1 to reserve the bytes, serializes the body and the
// reference table, then seeks back to offset 0 and rewrites the header
// with the real offsets. Because the stored type name does not change
// between the two writes, the header occupies the same number of bytes
// both times. A chunk whose offsets are still -1 was never finalized.
//
// A stream that does not start with the magic is a headerless blob:
// [ReadHeader] rewinds to where it started and reports no header, and
// the whole stream is the object body with no references.
package chunk
