// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the content store's standard CBOR encoding
// configuration.
//
// CBOR is the value codec underneath every chunk body written by the
// default struct serializer, the metadata column of the SQLite content
// index, and the machine-readable output of the contentstore CLI's
// inspect command. Sharing one configuration means a value encodes to
// the same bytes no matter which package wrote it. The encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items.
//
// For buffer-oriented operations (index rows, small files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (chunk bodies):
//
//	encoder := codec.NewEncoder(stream)
//	decoder := codec.NewDecoder(stream)
//
// A [Decoder] reads ahead of the item it is decoding. Code that mixes
// CBOR items with raw bytes on the same stream must finish its raw
// reads before creating the decoder.
//
// # Struct Tag Rules
//
// Types that are only ever stored as CBOR use `cbor` tags. Types that
// also appear in JSON output (CLI --json) use `json` tags;
// fxamacker/cbor reads `json` tags when `cbor` tags are absent. Never
// put both on one field.
package codec
