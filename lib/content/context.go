// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"reflect"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/typeregistry"
)

// Reference is a runtime reference discovered while (de)serializing a
// chunk: the declared type of the target, its location, and the live
// instance if there is one. A Reference with a nil Value is a proxy.
type Reference struct {
	// Type is the pointer type the referring field declares.
	Type reflect.Type
	// Location is where the target is stored.
	Location string
	// Value is the bound instance, or nil for a proxy.
	Value any
}

// IsProxy reports whether the reference carries only a location.
func (r Reference) IsProxy() bool {
	return r.Value == nil
}

// Resolver connects a [Context] to the store that owns it.
type Resolver interface {
	// LocationOf returns the location a live instance was loaded
	// from or saved to.
	LocationOf(value any) (string, bool)

	// Placeholder returns the instance a reference to location should
	// bind to: an already loaded instance assignable to t if there is
	// one, otherwise a fresh instance of t registered with the store
	// so that later references to the same location share it. The
	// placeholder is filled in when its own chunk is loaded.
	Placeholder(location string, t reflect.Type) (any, error)
}

// Context is the state of one chunk's (de)serialization.
type Context struct {
	// Location of the chunk being processed.
	Location string

	// Mode is the direction of this pass.
	Mode Mode

	// References is the chunk's reference table. On Serialize it
	// starts empty and is filled by WriteReference; on Deserialize it
	// is the table read from the chunk (empty for headerless chunks).
	References *chunk.ReferenceTable

	// LoadReferences binds references read from the body to
	// instances. When false every reference is read as a proxy.
	LoadReferences bool

	// AllowStreaming is passed through to serializers of streamable
	// content; when false they should materialize fully.
	AllowStreaming bool

	// Filter, if set, decides per reference whether it is bound and
	// loaded (true) or left as a proxy (false).
	Filter func(Reference) bool

	// Types names reference target types in the table.
	Types *typeregistry.Registry

	// Resolver is the owning store. Nil disables binding: every
	// reference reads as a proxy and writes need explicit locations.
	Resolver Resolver

	references []Reference
}

// ContentReferences returns the runtime references collected so far,
// in first-seen order with duplicates removed. After Serialize these
// are the objects the save walker follows; after Deserialize the
// bound ones are what the load walker loads next.
func (c *Context) ContentReferences() []Reference {
	return c.references
}

// WriteReference records a reference from the object being
// serialized and returns its reference table index. target is the
// declared pointer type. An empty reference (no location, no value)
// encodes as -1. A reference with a value but no location takes the
// location the store knows the value by.
func (c *Context) WriteReference(target reflect.Type, location string, value any) (int, error) {
	if c.Mode != Serialize {
		return 0, fmt.Errorf("writing reference in %s context", c.Mode)
	}
	if location == "" {
		if value == nil {
			return -1, nil
		}
		known := false
		if c.Resolver != nil {
			location, known = c.Resolver.LocationOf(value)
		}
		if !known {
			return 0, fmt.Errorf("reference to unsaved %T has no location", value)
		}
	}

	typeName := c.typeName(target, value)
	if c.References == nil {
		c.References = &chunk.ReferenceTable{}
	}
	index := c.References.Add(typeName, location)
	c.collect(Reference{Type: target, Location: location, Value: value})
	return index, nil
}

// ReadReference resolves a reference table index read from the body.
// It returns the target location and, unless the reference stays a
// proxy, the instance to bind. Index -1 is the empty reference.
func (c *Context) ReadReference(target reflect.Type, index int) (string, any, error) {
	if c.Mode != Deserialize {
		return "", nil, fmt.Errorf("reading reference in %s context", c.Mode)
	}
	if index == -1 {
		return "", nil, nil
	}
	if c.References == nil || !c.References.Has(index) {
		return "", nil, fmt.Errorf("reference index %d out of range (table has %d entries)", index, c.referenceCount())
	}
	location := c.References.Entry(index).Location

	if !c.LoadReferences || c.Resolver == nil {
		return location, nil, nil
	}
	if c.Filter != nil && !c.Filter(Reference{Type: target, Location: location}) {
		return location, nil, nil
	}

	value, err := c.Resolver.Placeholder(location, target)
	if err != nil {
		return "", nil, fmt.Errorf("resolving reference to %s: %w", location, err)
	}
	c.collect(Reference{Type: target, Location: location, Value: value})
	return location, value, nil
}

func (c *Context) referenceCount() int {
	if c.References == nil {
		return 0
	}
	return c.References.Len()
}

// typeName picks the table name for a reference: the registered name
// of the value's dynamic type, else of the declared type, else the
// default name of the declared type.
func (c *Context) typeName(target reflect.Type, value any) string {
	if c.Types != nil {
		if value != nil {
			if name, ok := c.Types.NameOf(reflect.TypeOf(value)); ok {
				return name
			}
		}
		if name, ok := c.Types.NameOf(target); ok {
			return name
		}
	}
	return typeregistry.DefaultName(target)
}

func (c *Context) collect(reference Reference) {
	for _, existing := range c.references {
		if existing.Location == reference.Location && existing.Type == reference.Type {
			return
		}
	}
	c.references = append(c.references, reference)
}
