// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the content store configuration.
//
// Configuration is loaded from a single file specified by either the
// CONTENTSTORE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no automatic file
// search. Files ending in .json or .jsonc are JSON with comments;
// everything else is YAML.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without its own section
// switches logging to JSON.
//
// After loading, ${HOME}, ${CONTENTSTORE_ROOT} and ${VAR:-default}
// patterns are expanded in path fields.
//
// This package depends on no other packages of this module.
package config
