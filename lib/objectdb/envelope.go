// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bureau-foundation/contentstore/lib/objectid"
)

// Envelope layout, 16 bytes then the payload:
//
//	magic "CSOB" | version u8 | compression u8 | flags u8 | reserved u8 | size u64 LE
//
// size is the plaintext length. The payload is the (possibly
// compressed) plaintext, sealed when flagSealed is set.
const (
	envelopeVersion    = 1
	envelopeHeaderSize = 16

	flagSealed = 1 << 0
)

var envelopeMagic = [4]byte{'C', 'S', 'O', 'B'}

// maxObjectSize bounds the size an envelope may claim, so a corrupt
// header cannot trigger a huge allocation.
const maxObjectSize = 1 << 34

type envelopeHeader struct {
	compression Compression
	sealed      bool
	size        uint64
}

func (h envelopeHeader) encode() []byte {
	header := make([]byte, envelopeHeaderSize)
	copy(header, envelopeMagic[:])
	header[4] = envelopeVersion
	header[5] = byte(h.compression)
	if h.sealed {
		header[6] |= flagSealed
	}
	binary.LittleEndian.PutUint64(header[8:], h.size)
	return header
}

func decodeEnvelopeHeader(data []byte) (envelopeHeader, error) {
	if len(data) < envelopeHeaderSize {
		return envelopeHeader{}, fmt.Errorf("object is %d bytes, shorter than the %d byte envelope", len(data), envelopeHeaderSize)
	}
	if !bytes.Equal(data[:4], envelopeMagic[:]) {
		return envelopeHeader{}, fmt.Errorf("object has no envelope magic")
	}
	if data[4] != envelopeVersion {
		return envelopeHeader{}, fmt.Errorf("unsupported envelope version %d", data[4])
	}
	if data[6]&^flagSealed != 0 {
		return envelopeHeader{}, fmt.Errorf("unknown envelope flags %#x", data[6])
	}
	header := envelopeHeader{
		compression: Compression(data[5]),
		sealed:      data[6]&flagSealed != 0,
		size:        binary.LittleEndian.Uint64(data[8:]),
	}
	if header.size > maxObjectSize || header.size > math.MaxInt {
		return envelopeHeader{}, fmt.Errorf("envelope claims %d bytes", header.size)
	}
	return header, nil
}

// encodeObject wraps plaintext in an envelope, compressing it per
// policy and sealing it when sealer is non-nil.
func encodeObject(id objectid.ID, plaintext []byte, policy Compression, sealer *Sealer) ([]byte, Compression, error) {
	payload, tag, err := compress(plaintext, policy)
	if err != nil {
		return nil, 0, err
	}
	header := envelopeHeader{compression: tag, sealed: sealer != nil, size: uint64(len(plaintext))}.encode()
	if sealer != nil {
		if payload, err = sealer.seal(id, header, payload); err != nil {
			return nil, 0, err
		}
	}
	object := make([]byte, 0, len(header)+len(payload))
	object = append(append(object, header...), payload...)
	return object, tag, nil
}

// decodeObject unwraps an envelope and checks the plaintext hashes to
// id.
func decodeObject(id objectid.ID, object []byte, sealer *Sealer) ([]byte, error) {
	header, err := decodeEnvelopeHeader(object)
	if err != nil {
		return nil, err
	}
	payload := object[envelopeHeaderSize:]
	if header.sealed {
		if sealer == nil {
			return nil, fmt.Errorf("object %s is sealed and no sealing key is configured", id.Short())
		}
		if payload, err = sealer.open(id, object[:envelopeHeaderSize], payload); err != nil {
			return nil, err
		}
	}
	plaintext, err := decompress(payload, header.compression, int(header.size))
	if err != nil {
		return nil, err
	}
	if actual := objectid.Of(plaintext); actual != id {
		return nil, fmt.Errorf("object %s hashes to %s", id.Short(), actual.Short())
	}
	return plaintext, nil
}
