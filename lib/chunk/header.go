// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the 4-byte signature at the start of every chunk with a
// header.
var Magic = [4]byte{'C', 'H', 'N', 'K'}

// CurrentVersion is the header version written by this package.
const CurrentVersion int32 = 1

// UnknownOffset marks an offset that has not been finalized.
const UnknownOffset int32 = -1

// MaxStringLength bounds every length-prefixed string in a chunk
// (stored type names and reference locations). Anything longer is
// treated as corruption rather than allocated.
const MaxStringLength = 64 * 1024

// Header is the preamble of a chunk.
type Header struct {
	// Version is the header layout version. Only version 1 carries the
	// fields below; other versions are read as a bare version number.
	Version int32 `json:"version"`

	// Type is the registered name of the stored type, resolved through
	// the type registry on load.
	Type string `json:"type"`

	// OffsetToObject is the absolute stream position of the object
	// body, or UnknownOffset.
	OffsetToObject int32 `json:"offset_to_object"`

	// OffsetToReferences is the absolute stream position of the
	// reference table, or UnknownOffset.
	OffsetToReferences int32 `json:"offset_to_references"`
}

// NewHeader returns a version 1 header for typeName with both offsets
// unknown. This is the placeholder a writer emits before the body.
func NewHeader(typeName string) *Header {
	return &Header{
		Version:            CurrentVersion,
		Type:               typeName,
		OffsetToObject:     UnknownOffset,
		OffsetToReferences: UnknownOffset,
	}
}

// Finalized reports whether both offsets have been patched in.
func (h *Header) Finalized() bool {
	return h.OffsetToObject != UnknownOffset && h.OffsetToReferences != UnknownOffset
}

// Size returns the encoded length of the header in bytes.
func (h *Header) Size() int {
	size := len(Magic) + 4
	if h.Version == 1 {
		size += stringSize(h.Type) + 8
	}
	return size
}

// Write encodes the header to w. The field order and widths are fixed
// so that rewriting a header with the same type name overwrites exactly
// the bytes of the placeholder.
func (h *Header) Write(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("writing chunk magic: %w", err)
	}
	if err := writeInt32(w, h.Version); err != nil {
		return fmt.Errorf("writing chunk version: %w", err)
	}
	if h.Version != 1 {
		return nil
	}
	if err := writeString(w, h.Type); err != nil {
		return fmt.Errorf("writing chunk type name: %w", err)
	}
	if err := writeInt32(w, h.OffsetToObject); err != nil {
		return fmt.Errorf("writing chunk object offset: %w", err)
	}
	if err := writeInt32(w, h.OffsetToReferences); err != nil {
		return fmt.Errorf("writing chunk reference offset: %w", err)
	}
	return nil
}

// ReadHeader reads a chunk header from the current position of r.
//
// If the stream does not start with [Magic] (including streams shorter
// than the magic), ReadHeader seeks back over the bytes it consumed and
// returns (nil, nil): the caller treats the stream as a headerless
// body. A header with an unknown version is returned with only Version
// set and both offsets at UnknownOffset.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	var magic [4]byte
	read, err := io.ReadFull(r, magic[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("reading chunk magic: %w", err)
	}
	if err != nil || magic != Magic {
		if _, err := r.Seek(-int64(read), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("rewinding headerless chunk: %w", err)
		}
		return nil, nil
	}

	header := &Header{
		OffsetToObject:     UnknownOffset,
		OffsetToReferences: UnknownOffset,
	}
	if header.Version, err = readInt32(r); err != nil {
		return nil, fmt.Errorf("reading chunk version: %w", err)
	}
	if header.Version != 1 {
		return header, nil
	}

	if header.Type, err = readString(r); err != nil {
		return nil, fmt.Errorf("reading chunk type name: %w", err)
	}
	if header.OffsetToObject, err = readInt32(r); err != nil {
		return nil, fmt.Errorf("reading chunk object offset: %w", err)
	}
	if header.OffsetToReferences, err = readInt32(r); err != nil {
		return nil, fmt.Errorf("reading chunk reference offset: %w", err)
	}
	return header, nil
}

func writeInt32(w io.Writer, value int32) error {
	var buffer [4]byte
	binary.LittleEndian.PutUint32(buffer[:], uint32(value))
	_, err := w.Write(buffer[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	var buffer [4]byte
	if _, err := io.ReadFull(r, buffer[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buffer[:])), nil
}

// writeString writes a uvarint byte length followed by the bytes of s.
func writeString(w io.Writer, s string) error {
	if len(s) > MaxStringLength {
		return fmt.Errorf("string is %d bytes, maximum is %d", len(s), MaxStringLength)
	}
	if err := writeUvarint(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	length, err := readUvarint(r)
	if err != nil {
		return "", err
	}
	if length > MaxStringLength {
		return "", fmt.Errorf("string length %d exceeds maximum %d", length, MaxStringLength)
	}
	buffer := make([]byte, length)
	if _, err := io.ReadFull(r, buffer); err != nil {
		return "", err
	}
	return string(buffer), nil
}

func stringSize(s string) int {
	var scratch [binary.MaxVarintLen64]byte
	return binary.PutUvarint(scratch[:], uint64(len(s))) + len(s)
}

func writeUvarint(w io.Writer, value uint64) error {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], value)
	_, err := w.Write(scratch[:n])
	return err
}

// readUvarint decodes a uvarint one byte at a time. The chunk reader
// must never consume past the field it is decoding (the body that
// follows belongs to another decoder), so no buffered reader is used.
func readUvarint(r io.Reader) (uint64, error) {
	var value uint64
	var single [1]byte
	for shift := uint(0); ; shift += 7 {
		if shift >= 64 {
			return 0, fmt.Errorf("uvarint overflows 64 bits")
		}
		if _, err := io.ReadFull(r, single[:]); err != nil {
			return 0, err
		}
		value |= uint64(single[0]&0x7f) << shift
		if single[0] < 0x80 {
			return value, nil
		}
	}
}
