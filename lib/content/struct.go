// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"reflect"
)

type fieldKind int

const (
	valueField fieldKind = iota
	singleRefField
	refSliceField
)

type structField struct {
	index int
	name  string
	kind  fieldKind
}

// StructSerializer is the default [Serializer] for *T where T is a
// struct. The body is a CBOR sequence with one item per exported
// field in declaration order. Fields tagged `content:"-"` are skipped.
//
// Ref[U] and []Ref[U] fields are written as reference table indexes
// (an int, or an array of ints). A Ref nested anywhere else (inside a
// map, a nested struct, a pointer) could not be tracked, so
// [NewStructSerializer] rejects such types.
//
// Deserializing resets the instance to its zero value first, so a
// reload into an existing instance does not keep stale fields.
type StructSerializer[T any] struct {
	fields []structField
}

// NewStructSerializer builds the field plan for T.
func NewStructSerializer[T any]() (*StructSerializer[T], error) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("struct serializer: %v is not a struct", structType)
	}

	serializer := &StructSerializer[T]{}
	for index := range structType.NumField() {
		field := structType.Field(index)
		if !field.IsExported() || field.Tag.Get("content") == "-" {
			continue
		}
		planned := structField{index: index, name: field.Name}
		switch {
		case isRefType(field.Type):
			planned.kind = singleRefField
		case field.Type.Kind() == reflect.Slice && isRefType(field.Type.Elem()):
			planned.kind = refSliceField
		default:
			if containsRef(field.Type, make(map[reflect.Type]bool)) {
				return nil, fmt.Errorf("struct serializer: %v.%s nests a content.Ref where it cannot be tracked; use a Ref or []Ref field",
					structType, field.Name)
			}
			planned.kind = valueField
		}
		serializer.fields = append(serializer.fields, planned)
	}
	return serializer, nil
}

// MustStructSerializer is [NewStructSerializer] for use in
// [SerializerProvider] implementations. It panics if T is unsupported.
func MustStructSerializer[T any]() *StructSerializer[T] {
	serializer, err := NewStructSerializer[T]()
	if err != nil {
		panic(err)
	}
	return serializer
}

func containsRef(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Struct:
		if isRefType(t) {
			return true
		}
		for index := range t.NumField() {
			field := t.Field(index)
			if field.IsExported() && containsRef(field.Type, seen) {
				return true
			}
		}
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return containsRef(t.Elem(), seen)
	case reflect.Map:
		return containsRef(t.Key(), seen) || containsRef(t.Elem(), seen)
	}
	return false
}

// StoredType implements [Serializer].
func (s *StructSerializer[T]) StoredType() reflect.Type {
	return reflect.TypeFor[*T]()
}

// ActualType implements [Serializer].
func (s *StructSerializer[T]) ActualType() reflect.Type {
	return reflect.TypeFor[*T]()
}

// Construct implements [Serializer].
func (s *StructSerializer[T]) Construct(*Context) (any, error) {
	return new(T), nil
}

// Serialize implements [Serializer].
func (s *StructSerializer[T]) Serialize(ctx *Context, stream *Stream, obj any) error {
	instance, ok := obj.(*T)
	if !ok || instance == nil {
		return fmt.Errorf("struct serializer for %v cannot handle %T", reflect.TypeFor[*T](), obj)
	}
	value := reflect.ValueOf(instance).Elem()
	if ctx.Mode == Serialize {
		return s.write(ctx, stream, value)
	}
	var zero T
	*instance = zero
	return s.read(ctx, stream, value)
}

func (s *StructSerializer[T]) write(ctx *Context, stream *Stream, value reflect.Value) error {
	for _, field := range s.fields {
		fieldValue := value.Field(field.index)
		var err error
		switch field.kind {
		case singleRefField:
			var index int
			index, err = writeRef(ctx, fieldValue)
			if err == nil {
				err = stream.Encode(index)
			}
		case refSliceField:
			var indexes []int
			if !fieldValue.IsNil() {
				indexes = make([]int, fieldValue.Len())
				for element := range indexes {
					if indexes[element], err = writeRef(ctx, fieldValue.Index(element)); err != nil {
						break
					}
				}
			}
			if err == nil {
				err = stream.Encode(indexes)
			}
		default:
			err = stream.Encode(fieldValue.Interface())
		}
		if err != nil {
			return fmt.Errorf("writing field %s: %w", field.name, err)
		}
	}
	return nil
}

func (s *StructSerializer[T]) read(ctx *Context, stream *Stream, value reflect.Value) error {
	for _, field := range s.fields {
		fieldValue := value.Field(field.index)
		var err error
		switch field.kind {
		case singleRefField:
			var index int
			if err = stream.Decode(&index); err == nil {
				err = readRef(ctx, fieldValue, index)
			}
		case refSliceField:
			var indexes []int
			if err = stream.Decode(&indexes); err != nil || indexes == nil {
				break
			}
			fieldValue.Set(reflect.MakeSlice(fieldValue.Type(), len(indexes), len(indexes)))
			for element, index := range indexes {
				if err = readRef(ctx, fieldValue.Index(element), index); err != nil {
					break
				}
			}
		default:
			err = stream.Decode(fieldValue.Addr().Interface())
		}
		if err != nil {
			return fmt.Errorf("reading field %s: %w", field.name, err)
		}
	}
	return nil
}

func writeRef(ctx *Context, fieldValue reflect.Value) (int, error) {
	ref := fieldValue.Addr().Interface().(refField)
	location, target := ref.refState()
	return ctx.WriteReference(ref.refTarget(), location, target)
}

func readRef(ctx *Context, fieldValue reflect.Value, index int) error {
	ref := fieldValue.Addr().Interface().(refField)
	location, target, err := ctx.ReadReference(ref.refTarget(), index)
	if err != nil {
		return err
	}
	return ref.setRef(location, target)
}
