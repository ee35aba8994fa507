// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"reflect"
)

type testTexture struct {
	Name  string
	Width int
}

func (*testTexture) ContentSerializer() Serializer {
	return MustStructSerializer[testTexture]()
}

type testMaterial struct {
	Name     string
	Albedo   Ref[testTexture]
	Layers   []Ref[testTexture]
	Scale    float64
	Cache    map[string]int `content:"-"`
	internal int
}

func (*testMaterial) ContentSerializer() Serializer {
	return MustStructSerializer[testMaterial]()
}

// fakeResolver stands in for the store: it knows some instances by
// location and hands out placeholders for the rest.
type fakeResolver struct {
	locations    map[any]string
	loaded       map[string]any
	placeholders []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{locations: make(map[any]string), loaded: make(map[string]any)}
}

func (r *fakeResolver) add(location string, value any) {
	r.locations[value] = location
	r.loaded[location] = value
}

func (r *fakeResolver) LocationOf(value any) (string, bool) {
	location, ok := r.locations[value]
	return location, ok
}

func (r *fakeResolver) Placeholder(location string, t reflect.Type) (any, error) {
	if existing, ok := r.loaded[location]; ok {
		if !reflect.TypeOf(existing).AssignableTo(t) {
			return nil, fmt.Errorf("%s holds %T, want %v", location, existing, t)
		}
		return existing, nil
	}
	if t.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("cannot construct %v", t)
	}
	value := reflect.New(t.Elem()).Interface()
	r.add(location, value)
	r.placeholders = append(r.placeholders, location)
	return value, nil
}
