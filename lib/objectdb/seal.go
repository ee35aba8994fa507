// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/contentstore/lib/objectid"
)

// KeySize is the size of the master sealing key.
const KeySize = 32

// sealOverhead is the nonce plus the Poly1305 tag.
const sealOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Changing this invalidates every sealed object.
var hkdfInfoObject = []byte("contentstore.object.seal.v1")

// Sealer encrypts object payloads with XChaCha20-Poly1305. Each object
// gets its own key, derived with HKDF-SHA256 from the master key and
// the object's ID; the envelope header and the ID are authenticated
// as additional data, so a payload cannot be moved to another object
// or have its header edited.
type Sealer struct {
	master *lockedKey
}

// NewSealer takes ownership of masterKey, which must be KeySize
// bytes. The slice is zeroed.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != KeySize {
		clear(masterKey)
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	key, err := newLockedKey(masterKey)
	if err != nil {
		return nil, err
	}
	return &Sealer{master: key}, nil
}

// LoadSealer reads the master key from path (raw or hex).
func LoadSealer(path string) (*Sealer, error) {
	key, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	return &Sealer{master: key}, nil
}

// Close zeroes and releases the master key.
func (s *Sealer) Close() error {
	return s.master.Close()
}

func (s *Sealer) aead(id objectid.ID) (cipher.AEAD, error) {
	derived := make([]byte, KeySize)
	defer clear(derived)
	err := s.master.use(func(master []byte) error {
		info := append(append([]byte{}, hkdfInfoObject...), id[:]...)
		_, err := io.ReadFull(hkdf.New(sha256.New, master, nil, info), derived)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("deriving object key: %w", err)
	}
	return chacha20poly1305.NewX(derived)
}

// seal returns nonce || ciphertext || tag.
func (s *Sealer) seal(id objectid.ID, header, plaintext []byte) ([]byte, error) {
	aead, err := s.aead(id)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	output := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	output = append(output, nonce[:]...)
	return aead.Seal(output, nonce[:], plaintext, additionalData(id, header)), nil
}

// open reverses seal.
func (s *Sealer) open(id objectid.ID, header, sealed []byte) ([]byte, error) {
	if len(sealed) < sealOverhead {
		return nil, fmt.Errorf("sealed payload is %d bytes, minimum is %d", len(sealed), sealOverhead)
	}
	aead, err := s.aead(id)
	if err != nil {
		return nil, err
	}
	nonce := sealed[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], additionalData(id, header))
	if err != nil {
		return nil, fmt.Errorf("unsealing object %s: %w", id.Short(), err)
	}
	return plaintext, nil
}

func additionalData(id objectid.ID, header []byte) []byte {
	data := make([]byte, 0, len(header)+len(id))
	return append(append(data, header...), id[:]...)
}
