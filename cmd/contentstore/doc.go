// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Contentstore is the maintenance CLI for a content store. It lists
// indexed locations (list), decodes chunks (inspect), checks that
// chunks read back and their references resolve (verify), deletes
// unreferenced objects (prune), and moves raw content in and out
// (put, get).
package main
