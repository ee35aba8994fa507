// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/contentstore/lib/sqlitepool"
)

const testSchema = `CREATE TABLE IF NOT EXISTS chunks (location TEXT PRIMARY KEY, size INTEGER NOT NULL);`

func openTestPool(t *testing.T, config sqlitepool.Config) *sqlitepool.Pool {
	t.Helper()
	if config.Path == "" {
		config.Path = filepath.Join(t.TempDir(), "index.db")
	}
	pool, err := sqlitepool.Open(config)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func queryText(t *testing.T, conn *sqlite.Conn, query string) string {
	t.Helper()
	var result string
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return result
}

func TestPragmas(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 2})
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	tests := []struct {
		pragma string
		want   string
	}{
		{"PRAGMA journal_mode", "wal"},
		{"PRAGMA synchronous", "1"},
		{"PRAGMA busy_timeout", "5000"},
		{"PRAGMA temp_store", "2"},
	}
	for _, test := range tests {
		if got := queryText(t, conn, test.pragma); got != test.want {
			t.Errorf("%s = %q, want %q", test.pragma, got, test.want)
		}
	}
}

func TestSchemaAndOnConnect(t *testing.T) {
	connected := 0
	pool := openTestPool(t, sqlitepool.Config{
		PoolSize: 1,
		Schema:   testSchema,
		OnConnect: func(*sqlite.Conn) error {
			connected++
			return nil
		},
	})
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	if connected != 1 {
		t.Fatalf("OnConnect ran %d times, want 1", connected)
	}
	err = sqlitex.Execute(conn, "INSERT INTO chunks (location, size) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{"textures/stone", 42},
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if got := queryText(t, conn, "SELECT size FROM chunks WHERE location = 'textures/stone'"); got != "42" {
		t.Fatalf("size = %q, want 42", got)
	}
}

func TestOnConnectFailureFailsTake(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{
		PoolSize: 1,
		OnConnect: func(*sqlite.Conn) error {
			return fmt.Errorf("refused")
		},
	})
	if _, err := pool.Take(context.Background()); err == nil {
		t.Fatal("Take should fail when OnConnect fails")
	}
}

func TestConcurrentReaders(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 4, Schema: testSchema})
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if err := sqlitex.ExecuteScript(conn,
		"INSERT INTO chunks VALUES ('a', 1), ('b', 2), ('c', 3), ('d', 4);", nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	pool.Put(conn)

	const readers = 8
	var group sync.WaitGroup
	failures := make(chan error, readers)
	for range readers {
		group.Go(func() {
			conn, err := pool.Take(context.Background())
			if err != nil {
				failures <- err
				return
			}
			defer pool.Put(conn)
			var total int64
			err = sqlitex.Execute(conn, "SELECT size FROM chunks", &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					total += stmt.ColumnInt64(0)
					return nil
				},
			})
			if err != nil {
				failures <- err
				return
			}
			if total != 10 {
				failures <- fmt.Errorf("total = %d, want 10", total)
			}
		})
	}
	group.Wait()
	close(failures)
	for err := range failures {
		t.Error(err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("Open without a path should fail")
	}
}

func TestTakeHonorsContext(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{PoolSize: 1})
	held, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("Take with a canceled context on an exhausted pool should fail")
	}
}
