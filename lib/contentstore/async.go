// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"reflect"
)

// Scheduler runs work off the caller's goroutine. The context handed
// to work must carry the caller's values.
type Scheduler interface {
	Go(ctx context.Context, work func(ctx context.Context))
}

// GoroutineScheduler starts one goroutine per call.
type GoroutineScheduler struct{}

// Go implements [Scheduler].
func (GoroutineScheduler) Go(ctx context.Context, work func(ctx context.Context)) {
	go work(ctx)
}

// LoadResult is the outcome of [Store.LoadAsync].
type LoadResult struct {
	Value any
	Err   error
}

// ReloadResult is the outcome of [Store.ReloadAsync].
type ReloadResult struct {
	Reloaded bool
	Err      error
}

// LoadAsync runs [Store.Load] on the store's scheduler. The returned
// channel receives exactly one result.
func (s *Store) LoadAsync(ctx context.Context, location string, declared reflect.Type, settings *LoaderSettings) <-chan LoadResult {
	result := make(chan LoadResult, 1)
	s.scheduler.Go(ctx, func(ctx context.Context) {
		value, err := s.Load(ctx, location, declared, settings)
		result <- LoadResult{Value: value, Err: err}
	})
	return result
}

// ReloadAsync runs [Store.Reload] on the store's scheduler. The
// returned channel receives exactly one result.
func (s *Store) ReloadAsync(ctx context.Context, instance any, newLocation string, settings *LoaderSettings) <-chan ReloadResult {
	result := make(chan ReloadResult, 1)
	s.scheduler.Go(ctx, func(ctx context.Context) {
		reloaded, err := s.Reload(ctx, instance, newLocation, settings)
		result <- ReloadResult{Reloaded: reloaded, Err: err}
	})
	return result
}
