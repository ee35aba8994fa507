// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the contentstore binary:
// a tree of [Command] values with pflag flag sets and structured help.
// Input the tree cannot dispatch comes back as a [UsageError], with a
// typo suggestion when a known command or flag is close.
//
// Commands write results to an [Output]. With --json they emit
// indented JSON through [Output.JSON]; otherwise they format text.
// [NewCommandLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal.
package cli
