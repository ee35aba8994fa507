// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestStampString(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })
	Version = "1.2.3"

	clean := stamp{commit: "abc1234", dirty: "false", time: "2026-10-01T00:00:00Z"}
	if got, want := clean.String(), "1.2.3 (abc1234, 2026-10-01T00:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	dirty := clean
	dirty.dirty = "true"
	if got := dirty.String(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("String() = %q, want a -dirty commit", got)
	}
}

func TestResolve(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}}
	unknown := stamp{commit: "unknown", dirty: "false", time: "unknown"}

	tests := []struct {
		name     string
		injected stamp
		info     *debug.BuildInfo
		want     stamp
	}{
		{"no build info", unknown, nil, unknown},
		{"from vcs", unknown, info, stamp{commit: "0123456", dirty: "true", time: "2026-09-30T12:00:00Z"}},
		{
			"injected wins",
			stamp{commit: "feedbee", dirty: "false", time: "2026-10-01T00:00:00Z"},
			info,
			stamp{commit: "feedbee", dirty: "false", time: "2026-10-01T00:00:00Z"},
		},
		{
			"short revision",
			unknown,
			&debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}},
			stamp{commit: "abc", dirty: "false", time: "unknown"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := resolve(test.injected, test.info); got != test.want {
				t.Fatalf("resolve = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, should start with Info()", full)
	}
	if !strings.Contains(full, runtime.Version()) {
		t.Errorf("Full() = %q, missing Go version", full)
	}
}
