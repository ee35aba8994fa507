// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectid names stored objects by the BLAKE3 keyed hash of
// their uncompressed, unsealed bytes. Identical content always gets
// the same ID, so the object database stores it once no matter how
// many locations point at it.
package objectid

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the length of an ID in bytes.
const Size = 32

// ID is a 32-byte BLAKE3 digest of an object's plaintext.
type ID [Size]byte

// domainKey separates object IDs from every other BLAKE3 use of the
// same bytes. Changing it renames every stored object.
var domainKey = [32]byte{
	'c', 'o', 'n', 't', 'e', 'n', 't', 's', 't', 'o', 'r', 'e', '.',
	'o', 'b', 'j', 'e', 'c', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Of returns the ID of data.
func Of(data []byte) ID {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("objectid: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}

// IsZero reports whether id is the zero ID, which no content hashes
// to in practice and marks "no object".
func (id ID) IsZero() bool {
	return id == ID{}
}

// String returns the lower-case hex form used in logs, the index and
// backend keys.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 12 hex characters, for display.
func (id ID) Short() string {
	return hex.EncodeToString(id[:6])
}

// Parse parses the 64-character hex form.
func Parse(text string) (ID, error) {
	var id ID
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return id, fmt.Errorf("parsing object id: %w", err)
	}
	if len(decoded) != Size {
		return id, fmt.Errorf("object id is %d bytes, want %d", len(decoded), Size)
	}
	copy(id[:], decoded)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
