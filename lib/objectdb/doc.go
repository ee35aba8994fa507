// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectdb is a content-addressed object database that serves
// as a [vfs.FileProvider] for the content store.
//
// Every published write becomes an object named by the BLAKE3 hash of
// its bytes ([objectid.ID]). Objects live in a [Backend] (memory, a
// local directory, or an S3 bucket) and a [contentindex.Index] maps
// each location to the object currently holding it. Writing identical
// bytes to two locations stores one object.
//
// On the way to the backend an object is optionally compressed (LZ4
// or zstd, chosen per object under [CompressionAuto]) and optionally
// sealed with XChaCha20-Poly1305 under a key derived from the master
// key and the object ID. The stored form is a 16-byte envelope header
// followed by the payload; reads reverse the transforms and check the
// plaintext still hashes to its ID.
//
// The master key is read from a file as raw bytes or hex
// ([LoadSealer]), or as an age-encrypted file unwrapped with an age
// identity ([LoadWrappedSealer]). [GenerateKey] produces either form.
//
// Replacing or removing a location leaves the old object in place.
// [DB.Prune] deletes objects no index entry refers to.
package objectdb
