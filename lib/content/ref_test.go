// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"reflect"
	"testing"
)

func TestRefStates(t *testing.T) {
	texture := &testTexture{}
	tests := []struct {
		name   string
		ref    Ref[testTexture]
		zero   bool
		proxy  bool
		string string
	}{
		{"empty", Ref[testTexture]{}, true, false, "ref(empty)"},
		{"proxy", ProxyRef[testTexture]("t/a"), false, true, "ref(t/a, proxy)"},
		{"bound", NewRef("t/a", texture), false, false, "ref(t/a)"},
		{"bound without location", NewRef("", texture), false, false, "ref()"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.ref.IsZero() != test.zero {
				t.Errorf("IsZero = %v, want %v", test.ref.IsZero(), test.zero)
			}
			if test.ref.IsProxy() != test.proxy {
				t.Errorf("IsProxy = %v, want %v", test.ref.IsProxy(), test.proxy)
			}
			if got := test.ref.String(); got != test.string {
				t.Errorf("String = %q, want %q", got, test.string)
			}
		})
	}
}

func TestRefReflectionHooks(t *testing.T) {
	if !isRefType(reflect.TypeFor[Ref[testTexture]]()) {
		t.Error("isRefType(Ref[testTexture]) = false")
	}
	if isRefType(reflect.TypeFor[testTexture]()) {
		t.Error("isRefType(testTexture) = true")
	}

	var ref Ref[testTexture]
	var field refField = &ref
	if field.refTarget() != reflect.TypeFor[*testTexture]() {
		t.Errorf("refTarget = %v", field.refTarget())
	}
	location, value := field.refState()
	if location != "" || value != nil {
		t.Errorf("refState of empty ref = (%q, %v), want (\"\", nil)", location, value)
	}

	texture := &testTexture{}
	if err := field.setRef("t/a", texture); err != nil {
		t.Fatalf("setRef failed: %v", err)
	}
	if ref.Get() != texture || ref.Location() != "t/a" {
		t.Errorf("after setRef: %v", ref)
	}
	if err := field.setRef("t/b", &testMaterial{}); err == nil {
		t.Error("setRef accepted a value of the wrong type")
	}
	if err := field.setRef("t/c", nil); err != nil || !ref.IsProxy() {
		t.Errorf("setRef(nil) = %v, ref %v; want proxy", err, ref)
	}
}
