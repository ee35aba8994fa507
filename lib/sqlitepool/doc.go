// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens pools of SQLite connections configured the
// same way for every persistent index in the content store.
//
// It is a thin layer over zombiezen.com/go/sqlite's sqlitex.Pool:
// every connection gets WAL journaling, NORMAL synchronous, a busy
// timeout and an in-memory temp store, then runs the caller's schema
// script. Callers write SQL against the zombiezen types directly:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(root, "index.db"),
//	    Schema: schema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
//
// Connections are not safe for concurrent use; each goroutine takes
// its own.
package sqlitepool
