// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"

	"github.com/bureau-foundation/contentstore/lib/content"
)

// LoaderSettings controls one Load or Reload.
type LoaderSettings struct {
	// LoadContentReferences loads the objects a chunk refers to. When
	// false, references are left as proxies (location only).
	LoadContentReferences bool

	// AllowContentStreaming lets streamable content stay partially
	// resident. When false, every instance a load returns or shares
	// is passed to the store's [Streamer] first.
	AllowContentStreaming bool

	// ContentFilter, if set, is consulted for each reference: false
	// leaves that reference as a proxy.
	ContentFilter func(content.Reference) bool
}

// DefaultLoaderSettings loads references and allows streaming.
func DefaultLoaderSettings() LoaderSettings {
	return LoaderSettings{
		LoadContentReferences: true,
		AllowContentStreaming: true,
	}
}

// Streamer forces streamable content to become fully resident.
type Streamer interface {
	FullyLoad(ctx context.Context, instance any) error
}

// Releaser is implemented by content that holds resources beyond
// memory. Release is called once, under the store lock, when the
// store frees the object. Content implementing io.Closer instead is
// closed.
type Releaser interface {
	Release()
}
