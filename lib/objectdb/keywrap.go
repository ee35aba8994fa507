// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// GenerateKey writes a new random master key to w. With no recipients
// the key is written as hex. Otherwise it is age-encrypted to every
// recipient (age1... public keys) in ASCII armor, for loading with
// [LoadWrappedSealer].
func GenerateKey(w io.Writer, recipientKeys []string) error {
	key := make([]byte, KeySize)
	defer clear(key)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return fmt.Errorf("generating sealing key: %w", err)
	}
	if len(recipientKeys) == 0 {
		encoded := make([]byte, hex.EncodedLen(KeySize)+1)
		defer clear(encoded)
		hex.Encode(encoded, key)
		encoded[len(encoded)-1] = '\n'
		_, err := w.Write(encoded)
		return err
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, recipientKey := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(recipientKey))
		if err != nil {
			return fmt.Errorf("parsing recipient %q: %w", recipientKey, err)
		}
		recipients = append(recipients, recipient)
	}

	armored := armor.NewWriter(w)
	encrypted, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := encrypted.Write(key); err != nil {
		return fmt.Errorf("encrypting sealing key: %w", err)
	}
	if err := encrypted.Close(); err != nil {
		return fmt.Errorf("finalizing sealing key: %w", err)
	}
	return armored.Close()
}

// LoadWrappedSealer reads an age-encrypted master key from path,
// armored or binary, and decrypts it with the identities in
// identityPath (an age identity file).
func LoadWrappedSealer(path, identityPath string) (*Sealer, error) {
	identityFile, err := os.Open(identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening sealing identity: %w", err)
	}
	identities, err := age.ParseIdentities(identityFile)
	identityFile.Close()
	if err != nil {
		return nil, fmt.Errorf("parsing sealing identity %s: %w", identityPath, err)
	}

	wrapped, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading sealing key: %w", err)
	}
	defer wrapped.Close()

	buffered := bufio.NewReader(wrapped)
	var source io.Reader = buffered
	if start, _ := buffered.Peek(len(armor.Header)); string(start) == armor.Header {
		source = armor.NewReader(buffered)
	}
	plaintext, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting sealing key %s: %w", path, err)
	}

	// One extra byte distinguishes an oversized key from an exact one.
	key := make([]byte, KeySize+1)
	defer clear(key)
	n, err := io.ReadFull(plaintext, key)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF) && n == KeySize:
	case err == nil:
		return nil, fmt.Errorf("sealing key %s decrypts to more than %d bytes", path, KeySize)
	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		return nil, fmt.Errorf("sealing key %s decrypts to %d bytes, want %d", path, n, KeySize)
	default:
		return nil, fmt.Errorf("decrypting sealing key %s: %w", path, err)
	}
	locked, err := newLockedKey(key[:KeySize])
	if err != nil {
		return nil, err
	}
	return &Sealer{master: locked}, nil
}
