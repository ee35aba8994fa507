// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"bytes"
	"testing"
)

func TestReferenceTableAddDeduplicates(t *testing.T) {
	var table ReferenceTable

	first := table.Add("Bar", "a/y")
	second := table.Add("Baz", "a/z")
	again := table.Add("Bar", "a/y")
	otherType := table.Add("Baz", "a/y")

	if first != 0 || second != 1 {
		t.Fatalf("indexes = (%d, %d), want (0, 1)", first, second)
	}
	if again != first {
		t.Errorf("re-adding (Bar, a/y) = %d, want %d", again, first)
	}
	if otherType != 2 {
		t.Errorf("(Baz, a/y) = %d, want 2 (type is part of identity)", otherType)
	}
	if table.Len() != 3 {
		t.Errorf("Len = %d, want 3", table.Len())
	}
	if !table.Has(2) || table.Has(3) || table.Has(-1) {
		t.Errorf("Has bounds wrong for table of length %d", table.Len())
	}
}

func TestReferenceTableRoundtrip(t *testing.T) {
	var table ReferenceTable
	table.Add("example.com/scene.Material", "materials/stone")
	table.Add("example.com/scene.Texture", "textures/stone_albedo")
	table.Add("example.com/scene.Texture", "")
	table.Add("", "unicode/ñandú")

	var buffer bytes.Buffer
	if err := table.Write(&buffer); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buffer.WriteString("trailing")

	reader := bytes.NewReader(buffer.Bytes())
	got, err := ReadReferenceTable(reader)
	if err != nil {
		t.Fatalf("ReadReferenceTable failed: %v", err)
	}
	want := table.Entries()
	if got.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", got.Len(), len(want))
	}
	for index, entry := range want {
		if got.Entry(index) != entry {
			t.Errorf("entry %d = %+v, want %+v", index, got.Entry(index), entry)
		}
	}
	if reader.Len() != len("trailing") {
		t.Errorf("reader consumed past the table: %d bytes left, want %d", reader.Len(), len("trailing"))
	}
}

func TestReferenceTableEmpty(t *testing.T) {
	var table ReferenceTable
	var buffer bytes.Buffer
	if err := table.Write(&buffer); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.Equal(buffer.Bytes(), []byte{0}) {
		t.Errorf("empty table encodes as %v, want [0]", buffer.Bytes())
	}
	got, err := ReadReferenceTable(bytes.NewReader(buffer.Bytes()))
	if err != nil {
		t.Fatalf("ReadReferenceTable failed: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len = %d, want 0", got.Len())
	}
}

func TestReadReferenceTableRejectsHugeCount(t *testing.T) {
	var buffer bytes.Buffer
	if err := writeUvarint(&buffer, MaxReferences+1); err != nil {
		t.Fatalf("writeUvarint failed: %v", err)
	}
	if _, err := ReadReferenceTable(bytes.NewReader(buffer.Bytes())); err == nil {
		t.Fatal("ReadReferenceTable accepted a count above MaxReferences")
	}
}

func TestReadReferenceTableTruncated(t *testing.T) {
	var table ReferenceTable
	table.Add("Bar", "a/y")
	var buffer bytes.Buffer
	if err := table.Write(&buffer); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	encoded := buffer.Bytes()
	for cut := 0; cut < len(encoded); cut++ {
		if _, err := ReadReferenceTable(bytes.NewReader(encoded[:cut])); err == nil {
			t.Errorf("ReadReferenceTable of %d/%d bytes succeeded, want error", cut, len(encoded))
		}
	}
}
