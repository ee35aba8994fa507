// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Release builds inject these with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/contentstore/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Values left at "unknown" are filled from the VCS stamp the Go
// toolchain embeds, when there is one.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is set by hand for releases.
	Version = "0.1.0-dev"
)

// stamp is the commit, dirty flag and build time to report.
type stamp struct {
	commit, dirty, time string
}

// current merges the injected values with the embedded VCS settings.
func current() stamp {
	info, _ := debug.ReadBuildInfo()
	return resolve(stamp{commit: GitCommit, dirty: GitDirty, time: BuildTime}, info)
}

// resolve fills unknown fields of injected from info's vcs.* settings.
func resolve(injected stamp, info *debug.BuildInfo) stamp {
	if info == nil {
		return injected
	}
	result := injected
	fromVCS := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if injected.commit == "unknown" && setting.Value != "" {
				result.commit = setting.Value[:min(len(setting.Value), 7)]
				fromVCS = true
			}
		case "vcs.time":
			if injected.time == "unknown" {
				result.time = setting.Value
			}
		}
	}
	if fromVCS {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" {
				result.dirty = setting.Value
			}
		}
	}
	return result
}

func (s stamp) String() string {
	dirty := ""
	if s.dirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, s.commit, dirty, s.time)
}

// Info returns the one-line version for --version.
func Info() string {
	return current().String()
}

// Full adds the Go version and platform to [Info].
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
