// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"io"
	"reflect"
)

// Blob is raw content: a chunk body with no header and no references.
// Loading any headerless file as *Blob yields its bytes.
type Blob struct {
	Data []byte
}

// ContentSerializer implements [SerializerProvider].
func (*Blob) ContentSerializer() Serializer {
	return BytesSerializer{}
}

// BytesSerializer reads and writes a [Blob] as a headerless chunk.
type BytesSerializer struct{}

// StoredType returns nil: blobs are written without a header.
func (BytesSerializer) StoredType() reflect.Type {
	return nil
}

// ActualType implements [Serializer].
func (BytesSerializer) ActualType() reflect.Type {
	return reflect.TypeFor[*Blob]()
}

// Construct implements [Serializer].
func (BytesSerializer) Construct(*Context) (any, error) {
	return &Blob{}, nil
}

// Serialize implements [Serializer].
func (BytesSerializer) Serialize(ctx *Context, stream *Stream, obj any) error {
	blob, ok := obj.(*Blob)
	if !ok || blob == nil {
		return fmt.Errorf("bytes serializer cannot handle %T", obj)
	}
	if ctx.Mode == Serialize {
		_, err := stream.Write(blob.Data)
		return err
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return err
	}
	blob.Data = data
	return nil
}
