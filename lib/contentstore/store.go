// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"sync"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/clock"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// Options configures a [Store].
type Options struct {
	// Files is the namespace chunks are read from and written to.
	// Required.
	Files vfs.FileProvider

	// Serializers selects serializers and names stored types. If nil,
	// a fresh registry is created; either way Types are scanned into
	// it.
	Serializers *content.Registry

	// Types are scanned for [content.SerializerProvider]
	// implementations when the store is created. Types whose stored
	// names must resolve on load (anything loaded as a broader
	// declared type) belong here.
	Types []reflect.Type

	// Logger receives structured logs. Defaults to discarding.
	Logger *slog.Logger

	// Metrics records Prometheus metrics. Nil disables metrics.
	Metrics *Metrics

	// Clock times operations for Metrics. Defaults to the real clock.
	Clock clock.Clock

	// Streamer fully loads streamable content when a load disallows
	// streaming. Nil means nothing is streamable.
	Streamer Streamer

	// Scheduler runs LoadAsync and ReloadAsync. Defaults to one
	// goroutine per call.
	Scheduler Scheduler

	// OnNotFound is called, under the store lock, for every location
	// a load finds missing. It must not call back into the store.
	OnNotFound func(*NotFoundError)
}

// Store is the content store. Safe for concurrent use; all structural
// operations are serialized by one mutex.
type Store struct {
	files       vfs.FileProvider
	serializers *content.Registry
	logger      *slog.Logger
	metrics     *Metrics
	clock       clock.Clock
	streamer    Streamer
	scheduler   Scheduler
	onNotFound  func(*NotFoundError)

	mu         sync.Mutex
	byLocation map[string]*record
	byInstance map[any]*record

	generation uint64
	sweepStack []*record
	collecting bool
}

// New creates a store.
func New(options Options) (*Store, error) {
	if options.Files == nil {
		return nil, fmt.Errorf("content store requires a file provider")
	}
	serializers := options.Serializers
	if serializers == nil {
		serializers = content.NewRegistry(nil)
	}
	if err := serializers.RegisterTypes(options.Types...); err != nil {
		return nil, fmt.Errorf("scanning content types: %w", err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeSource := options.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	scheduler := options.Scheduler
	if scheduler == nil {
		scheduler = GoroutineScheduler{}
	}

	return &Store{
		files:       options.Files,
		serializers: serializers,
		logger:      logger,
		metrics:     options.Metrics,
		clock:       timeSource,
		streamer:    options.Streamer,
		scheduler:   scheduler,
		onNotFound:  options.OnNotFound,
		byLocation:  make(map[string]*record),
		byInstance:  make(map[any]*record),
	}, nil
}

// Serializers returns the store's serializer registry.
func (s *Store) Serializers() *content.Registry {
	return s.serializers
}

// lock takes the store mutex and returns the function that releases
// it and records the operation's duration.
func (s *Store) lock(operation string) func() {
	start := s.clock.Now()
	s.mu.Lock()
	return func() {
		s.metrics.setLoaded(len(s.byInstance))
		s.mu.Unlock()
		s.metrics.observe(operation, s.clock.Since(start))
	}
}

func resolveSettings(settings *LoaderSettings) LoaderSettings {
	if settings == nil {
		return DefaultLoaderSettings()
	}
	return *settings
}

// Load returns the content at location as declared (nil means any),
// taking one public reference on it. If a compatible instance is
// already loaded it is shared instead of read again. A missing
// location is not an error: it is logged, reported to
// [Options.OnNotFound], and Load returns (nil, nil). A nil settings
// uses [DefaultLoaderSettings].
func (s *Store) Load(ctx context.Context, location string, declared reflect.Type, settings *LoaderSettings) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if declared == nil {
		declared = reflect.TypeFor[any]()
	}
	unlock := s.lock("load")
	defer unlock()

	value, _, err := s.loadGraph(ctx, loadOperation{location: location, declared: declared}, resolveSettings(settings))
	return value, err
}

// LoadAs is [Store.Load] with the declared type given as T.
func LoadAs[T any](ctx context.Context, s *Store, location string, settings *LoaderSettings) (T, error) {
	var zero T
	value, err := s.Load(ctx, location, reflect.TypeFor[T](), settings)
	if err != nil || value == nil {
		return zero, err
	}
	return value.(T), nil
}

// Save writes instance to location, followed by every instance it
// refers to that the store does not already hold, each to its own
// chunk. The saved instance is registered with one public reference.
// Saving an instance the store already holds does nothing.
// storageType, if non-nil, selects the serializer by stored type.
func (s *Store) Save(ctx context.Context, location string, instance any, storageType reflect.Type) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkInstance(instance); err != nil {
		return &SaveError{Location: location, Err: err}
	}
	unlock := s.lock("save")
	defer unlock()

	return s.saveGraph(ctx, saveOperation{location: location, instance: instance, storageType: storageType})
}

// Reload re-reads a loaded instance in place from newLocation, or from
// its current location if newLocation is empty. The record keeps its
// reference counts and moves to newLocation. Objects the old contents
// referred to are released only after the new graph is loaded, so
// content referenced both before and after is not unloaded in
// between.
//
// Reload returns false with no error if the store does not hold
// instance or the chunk is missing. If reading fails, the record's old
// references are restored, but the instance's fields may already have
// been overwritten.
func (s *Store) Reload(ctx context.Context, instance any, newLocation string, settings *LoaderSettings) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if checkInstance(instance) != nil {
		return false, nil
	}
	unlock := s.lock("reload")
	defer unlock()

	target, known := s.byInstance[instance]
	if !known {
		return false, nil
	}
	oldLocation := target.location
	if s.find(oldLocation, reflect.TypeOf(instance)) != target {
		return false, &InvariantError{Location: oldLocation, Reason: "object does not match the record loaded at its location; cannot reload"}
	}
	location := newLocation
	if location == "" {
		location = oldLocation
	}

	// Set the old references aside until the new graph is loaded.
	oldChildren := target.children
	wasDeserialized := target.deserialized
	target.children = make(map[*record]struct{})
	target.deserialized = false
	if location != oldLocation {
		s.relocate(target, location)
	}

	_, _, err := s.loadGraph(ctx, loadOperation{
		location: location,
		declared: reflect.TypeOf(instance),
		instance: instance,
		target:   target,
	}, resolveSettings(settings))

	if err != nil || !target.deserialized {
		var errs []error
		if err != nil {
			errs = append(errs, err)
		}
		for child := range target.children {
			if releaseErr := s.decrement(child, false); releaseErr != nil {
				errs = append(errs, releaseErr)
			}
		}
		target.children = oldChildren
		target.deserialized = wasDeserialized
		if target.location != oldLocation {
			s.relocate(target, oldLocation)
		}
		// Released children may still hold each other in a cycle.
		s.collect()
		return false, errors.Join(errs...)
	}

	var errs []error
	for child := range oldChildren {
		if releaseErr := s.decrement(child, false); releaseErr != nil {
			errs = append(errs, releaseErr)
		}
	}
	if len(oldChildren) > 0 {
		s.collect()
	}
	s.logger.Info("reloaded content", "location", location, "previous_location", oldLocation)
	return true, errors.Join(errs...)
}

// Unload releases one public reference on instance. Releasing more
// references than were taken is an [InvariantError].
func (s *Store) Unload(instance any) error {
	if checkInstance(instance) != nil {
		return fmt.Errorf("unloading %T: %w", instance, ErrNotLoaded)
	}
	unlock := s.lock("unload")
	defer unlock()

	target, known := s.byInstance[instance]
	if !known {
		return fmt.Errorf("unloading %T: %w", instance, ErrNotLoaded)
	}
	s.metrics.unload()
	return s.decrement(target, true)
}

// UnloadLocation releases one public reference on the first record
// at location.
func (s *Store) UnloadLocation(location string) error {
	unlock := s.lock("unload")
	defer unlock()

	target, known := s.byLocation[location]
	if !known {
		return fmt.Errorf("unloading %s: %w", location, ErrNotLoaded)
	}
	s.metrics.unload()
	return s.decrement(target, true)
}

// Get returns the loaded instance at location assignable to declared
// (nil means any), without taking a reference or reading anything.
func (s *Store) Get(location string, declared reflect.Type) (any, bool) {
	if declared == nil {
		declared = reflect.TypeFor[any]()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.find(location, declared)
	if target == nil || !target.deserialized {
		return nil, false
	}
	return target.instance, true
}

// GetAs is [Store.Get] with the declared type given as T.
func GetAs[T any](s *Store, location string) (T, bool) {
	var zero T
	value, found := s.Get(location, reflect.TypeFor[T]())
	if !found {
		return zero, false
	}
	return value.(T), true
}

// Exists reports whether location has a backing file.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	return s.files.Exists(ctx, location)
}

// IsLoaded reports whether anything is loaded at location. With
// manualOnly, only content holding a public reference counts.
func (s *Store) IsLoaded(location string, manualOnly bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	head := s.byLocation[location]
	return head != nil && (!manualOnly || head.publicCount > 0)
}

// LocationOf returns the location instance was loaded from or saved
// to.
func (s *Store) LocationOf(instance any) (string, bool) {
	if checkInstance(instance) != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationOf(instance)
}

func (s *Store) locationOf(instance any) (string, bool) {
	if checkInstance(instance) != nil {
		return "", false
	}
	target, known := s.byInstance[instance]
	if !known {
		return "", false
	}
	return target.location, true
}

// OpenStream opens the raw chunk at location for reading.
func (s *Store) OpenStream(ctx context.Context, location string) (vfs.Stream, error) {
	stream, err := s.files.Open(ctx, location, vfs.Open, vfs.Read)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Location: location}
	}
	return stream, err
}

// ReadChunkHeader reads the header of the chunk at location. A
// headerless chunk yields (nil, nil).
func (s *Store) ReadChunkHeader(ctx context.Context, location string) (*chunk.Header, error) {
	stream, err := s.OpenStream(ctx, location)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	header, err := chunk.ReadHeader(stream)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return header, nil
}

// Collect runs a cycle collection now and returns how many records it
// freed. The store also collects on its own whenever a public
// reference count drops to zero.
func (s *Store) Collect() int {
	unlock := s.lock("collect")
	defer unlock()
	return s.collect()
}
