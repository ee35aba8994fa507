// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] bounds a wait on an asynchronous result (LoadAsync
// and ReloadAsync deliver theirs on channels) so a hung operation
// fails its test instead of stalling the run.
package testutil
