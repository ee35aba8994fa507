// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps or measures time takes a Clock instead of calling
// time.Now directly: the content index stamps entries with it, and the
// content store measures operation latency with it. Production code
// passes Real(); tests pass Fake() and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	index := contentindex.NewMemoryIndex(c)
//	c.Advance(time.Minute)
package clock
