// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentstore loads, saves, reloads and unloads named content
// objects over a virtual filesystem, sharing one live instance per
// location and type and reclaiming objects nothing refers to any more.
//
// # Records and reference counts
//
// Every live object has a record holding its location, its instance,
// and two reference counts. The public count tracks caller Load/Unload
// (and Save) pairs. The private count tracks other loaded objects that
// refer to this one through a [content.Ref]. A record is freed when
// both reach zero: its instance is released (see [Releaser]), it is
// removed from the store, and each object it referred to loses one
// private reference.
//
// Counting alone never frees a cycle (A refers to B, B refers to A),
// so whenever a public count drops to zero the store runs a
// mark-and-sweep collection over all records: everything reachable
// from a record with a public reference survives, everything else is
// freed. Collection runs inside the store lock;
// the order in which members of an unreachable cycle are released is
// unspecified.
//
// # Graph walks
//
// Load and Save walk the object graph breadth-first from one work
// queue. A load reads a chunk's reference table before its body, binds
// each reference to an existing instance or a placeholder that is
// filled in when its own chunk is read, then queues the referenced
// chunks. A save writes each object to its own chunk and queues every
// bound reference, so the whole reachable graph is written once.
//
// # Concurrency
//
// One mutex serializes every structural operation, including the I/O
// it performs. The store starts no goroutines of its own; LoadAsync
// and ReloadAsync hand the synchronous call to a [Scheduler] together
// with the caller's context.
package contentstore
