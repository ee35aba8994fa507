// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"io"

	"github.com/bureau-foundation/contentstore/lib/codec"
)

// Stream is the chunk stream handed to a [Serializer], positioned at
// the start of the object body. It is usable as a raw io.ReadWriter
// and also carries a lazily created CBOR encoder and decoder.
//
// The decoder reads ahead. A serializer that mixes raw reads with
// Decode must do all raw reads first.
type Stream struct {
	io.ReadWriteSeeker
	encoder *codec.Encoder
	decoder *codec.Decoder
}

// NewStream wraps rws.
func NewStream(rws io.ReadWriteSeeker) *Stream {
	return &Stream{ReadWriteSeeker: rws}
}

// Encode writes v as the next CBOR item.
func (s *Stream) Encode(v any) error {
	if s.encoder == nil {
		s.encoder = codec.NewEncoder(s.ReadWriteSeeker)
	}
	return s.encoder.Encode(v)
}

// Decode reads the next CBOR item into v.
func (s *Stream) Decode(v any) error {
	if s.decoder == nil {
		s.decoder = codec.NewDecoder(s.ReadWriteSeeker)
	}
	return s.decoder.Decode(v)
}
