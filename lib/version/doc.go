// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the contentstore
// binary.
//
// [GitCommit], [GitDirty] and [BuildTime] are injected with -ldflags
// -X for release builds. Development builds leave them at "unknown"
// and fall back to the VCS stamp the toolchain embeds. [Info] formats
// "0.1.0-dev (abc1234, 2026-02-10T...)" for --version; [Full] adds the
// Go version and GOOS/GOARCH.
package version
