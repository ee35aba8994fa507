// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestHeaderRoundtrip(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{"placeholder", *NewHeader("example.com/scene.Mesh")},
		{"finalized", Header{Version: 1, Type: "example.com/scene.Mesh", OffsetToObject: 33, OffsetToReferences: 4096}},
		{"empty type", Header{Version: 1, OffsetToObject: 14, OffsetToReferences: 14}},
		{"large offsets", Header{Version: 1, Type: "t", OffsetToObject: 1<<31 - 2, OffsetToReferences: 1<<31 - 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buffer bytes.Buffer
			if err := test.header.Write(&buffer); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if buffer.Len() != test.header.Size() {
				t.Errorf("encoded %d bytes, Size() = %d", buffer.Len(), test.header.Size())
			}

			got, err := ReadHeader(bytes.NewReader(buffer.Bytes()))
			if err != nil {
				t.Fatalf("ReadHeader failed: %v", err)
			}
			if got == nil {
				t.Fatal("ReadHeader returned no header")
			}
			if *got != test.header {
				t.Errorf("ReadHeader = %+v, want %+v", *got, test.header)
			}
		})
	}
}

func TestHeaderLayout(t *testing.T) {
	header := Header{Version: 1, Type: "Foo", OffsetToObject: 20, OffsetToReferences: 99}
	var buffer bytes.Buffer
	if err := header.Write(&buffer); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	encoded := buffer.Bytes()

	if !bytes.Equal(encoded[0:4], []byte("CHNK")) {
		t.Errorf("magic = %q, want %q", encoded[0:4], "CHNK")
	}
	if version := binary.LittleEndian.Uint32(encoded[4:8]); version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	// One-byte uvarint length, then the name.
	if encoded[8] != 3 || string(encoded[9:12]) != "Foo" {
		t.Errorf("type name bytes = %v, want length 3 then %q", encoded[8:12], "Foo")
	}
	if offset := binary.LittleEndian.Uint32(encoded[12:16]); offset != 20 {
		t.Errorf("object offset = %d, want 20", offset)
	}
	if offset := binary.LittleEndian.Uint32(encoded[16:20]); offset != 99 {
		t.Errorf("reference offset = %d, want 99", offset)
	}
}

func TestHeaderRewriteSameSize(t *testing.T) {
	placeholder := NewHeader("example.com/scene.Material")
	final := *placeholder
	final.OffsetToObject = 1234
	final.OffsetToReferences = 98765

	if placeholder.Size() != final.Size() {
		t.Fatalf("placeholder size %d != final size %d", placeholder.Size(), final.Size())
	}
	if placeholder.Finalized() {
		t.Error("placeholder reports finalized")
	}
	if !final.Finalized() {
		t.Error("final header reports not finalized")
	}
}

func TestReadHeaderHeaderless(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"raw body", []byte("plain bytes with no magic")},
		{"near miss", []byte("CHNX and more")},
		{"short", []byte("CH")},
		{"empty", nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reader := bytes.NewReader(test.data)
			header, err := ReadHeader(reader)
			if err != nil {
				t.Fatalf("ReadHeader failed: %v", err)
			}
			if header != nil {
				t.Fatalf("ReadHeader = %+v, want no header", header)
			}
			position, err := reader.Seek(0, io.SeekCurrent)
			if err != nil {
				t.Fatalf("Seek failed: %v", err)
			}
			if position != 0 {
				t.Errorf("position after headerless read = %d, want 0", position)
			}
			rest, _ := io.ReadAll(reader)
			if !bytes.Equal(rest, test.data) {
				t.Errorf("remaining body = %q, want %q", rest, test.data)
			}
		})
	}
}

func TestReadHeaderHeaderlessMidStream(t *testing.T) {
	data := []byte("prefix:no magic here")
	reader := bytes.NewReader(data)
	if _, err := reader.Seek(7, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	header, err := ReadHeader(reader)
	if err != nil || header != nil {
		t.Fatalf("ReadHeader = (%v, %v), want (nil, nil)", header, err)
	}
	position, _ := reader.Seek(0, io.SeekCurrent)
	if position != 7 {
		t.Errorf("position = %d, want 7", position)
	}
}

func TestReadHeaderUnknownVersion(t *testing.T) {
	var buffer bytes.Buffer
	buffer.Write(Magic[:])
	binary.Write(&buffer, binary.LittleEndian, int32(7))
	buffer.WriteString("trailing body")

	reader := bytes.NewReader(buffer.Bytes())
	header, err := ReadHeader(reader)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if header == nil {
		t.Fatal("ReadHeader returned no header")
	}
	if header.Version != 7 {
		t.Errorf("Version = %d, want 7", header.Version)
	}
	if header.OffsetToObject != UnknownOffset || header.OffsetToReferences != UnknownOffset {
		t.Errorf("offsets = (%d, %d), want both %d",
			header.OffsetToObject, header.OffsetToReferences, UnknownOffset)
	}
	if header.Type != "" {
		t.Errorf("Type = %q, want empty", header.Type)
	}
	position, _ := reader.Seek(0, io.SeekCurrent)
	if position != 8 {
		t.Errorf("position = %d, want 8 (nothing read past version)", position)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	var buffer bytes.Buffer
	if err := NewHeader("example.com/scene.Mesh").Write(&buffer); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	encoded := buffer.Bytes()

	// Every cut after the magic leaves a header that claims to exist but
	// cannot be read.
	for cut := len(Magic) + 1; cut < len(encoded); cut++ {
		if _, err := ReadHeader(bytes.NewReader(encoded[:cut])); err == nil {
			t.Errorf("ReadHeader of %d/%d bytes succeeded, want error", cut, len(encoded))
		}
	}
}

func TestWriteHeaderRejectsLongType(t *testing.T) {
	header := NewHeader(string(bytes.Repeat([]byte("x"), MaxStringLength+1)))
	if err := header.Write(io.Discard); err == nil {
		t.Fatal("Write accepted an oversized type name")
	}
}
