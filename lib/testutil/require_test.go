// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// recorder captures a fatal failure instead of stopping the test.
type recorder struct {
	failure string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failure = fmt.Sprintf(format, args...)
	panic(r)
}

func capture(fn func(*recorder)) (failure string) {
	r := &recorder{}
	defer func() {
		if recovered := recover(); recovered != nil && recovered != r {
			panic(recovered)
		}
		failure = r.failure
	}()
	fn(r)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != 7 {
		t.Fatalf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireReceiveFailures(t *testing.T) {
	closed := make(chan int)
	close(closed)
	failure := capture(func(r *recorder) { RequireReceive(r, closed, time.Second, "closed result") })
	if !strings.Contains(failure, "closed result: channel closed") {
		t.Fatalf("failure = %q, want a closed-channel report", failure)
	}

	failure = capture(func(r *recorder) { RequireReceive(r, make(chan int), time.Millisecond, "idle result") })
	if !strings.Contains(failure, "idle result: nothing received within 1ms") {
		t.Fatalf("failure = %q, want a timeout report", failure)
	}
}
