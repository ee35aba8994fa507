// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectdb

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	text := []byte(strings.Repeat("material brick albedo textures/diffuse\n", 200))
	random := make([]byte, 4096)
	rand.Read(random)

	tests := []struct {
		name   string
		data   []byte
		policy Compression
		want   Compression
	}{
		{"none", text, CompressionNone, CompressionNone},
		{"lz4", text, CompressionLZ4, CompressionLZ4},
		{"zstd", text, CompressionZstd, CompressionZstd},
		{"auto text", text, CompressionAuto, CompressionZstd},
		{"auto random", random, CompressionAuto, CompressionNone},
		{"lz4 random falls back", random, CompressionLZ4, CompressionNone},
		{"zstd random falls back", random, CompressionZstd, CompressionNone},
		{"empty", nil, CompressionAuto, CompressionNone},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			payload, tag, err := compress(test.data, test.policy)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			if tag != test.want {
				t.Fatalf("tag = %s, want %s", tag, test.want)
			}
			if tag != CompressionNone && len(payload) >= len(test.data) {
				t.Fatalf("compressed payload is %d bytes, input %d", len(payload), len(test.data))
			}
			restored, err := decompress(payload, tag, len(test.data))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(restored, test.data) {
				t.Fatal("round trip changed the data")
			}
		})
	}
}

func TestDecompressRejectsWrongSize(t *testing.T) {
	data := []byte(strings.Repeat("abc", 1000))
	for _, policy := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		payload, tag, err := compress(data, policy)
		if err != nil {
			t.Fatalf("compress %s: %v", policy, err)
		}
		if _, err := decompress(payload, tag, len(data)+1); err == nil {
			t.Fatalf("%s: decompress with the wrong size should fail", policy)
		}
	}
}

func TestDecompressRejectsUnknownTag(t *testing.T) {
	if _, err := decompress([]byte("x"), CompressionAuto, 1); err == nil {
		t.Fatal("auto is not a stored tag and should be rejected")
	}
}

func TestParseCompression(t *testing.T) {
	for _, want := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto} {
		got, err := ParseCompression(want.String())
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("ParseCompression(%q) = %s, want %s", want.String(), got, want)
		}
	}
	if got, _ := ParseCompression(""); got != CompressionAuto {
		t.Fatalf("ParseCompression(\"\") = %s, want auto", got)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatal("ParseCompression(gzip) should fail")
	}
}
