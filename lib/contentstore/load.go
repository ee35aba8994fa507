// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// loadOperation is one entry in the load work queue.
type loadOperation struct {
	// parent is the record whose chunk referred to this location, or
	// nil for the caller's root request.
	parent *record

	location string
	declared reflect.Type

	// instance is the placeholder the parent's reference was bound
	// to, if any.
	instance any

	// target is set for a reload: the record whose instance is
	// refilled in place. The root of a reload takes no reference.
	target *record
}

// loader runs one breadth-first load. It is the [content.Resolver]
// for every chunk it reads.
type loader struct {
	store    *Store
	ctx      context.Context
	settings LoaderSettings
	queue    []loadOperation

	// placeholders created during this load. Any still unfilled and
	// unreferenced when the load ends are removed.
	placeholders []*record
}

// loadGraph processes first and everything it pulls in. It returns
// the instance for first and, for a root request, the record that
// took the caller's public reference.
func (s *Store) loadGraph(ctx context.Context, first loadOperation, settings LoaderSettings) (any, *record, error) {
	l := &loader{
		store:    s,
		ctx:      ctx,
		settings: settings,
		queue:    []loadOperation{first},
	}
	defer l.dropPlaceholders()

	var result any
	var root *record
	for processed := 0; len(l.queue) > 0; processed++ {
		operation := l.queue[0]
		l.queue = l.queue[1:]

		value, loaded, err := l.loadOne(operation)
		if err != nil {
			if root != nil {
				// Undo the caller's reference so the partial graph
				// is freed with it.
				l.dropPlaceholders()
				if releaseErr := s.decrement(root, true); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return nil, nil, err
		}
		if processed == 0 {
			result = value
			if operation.target == nil && loaded != nil {
				root = loaded
			}
		}
	}
	return result, root, nil
}

// loadOne loads a single chunk, or shares an already loaded instance.
// A missing chunk yields (nil, nil, nil).
func (l *loader) loadOne(operation loadOperation) (any, *record, error) {
	s := l.store
	target := operation.target
	if target == nil {
		target = s.find(operation.location, operation.declared)
	}

	if target != nil && target.deserialized {
		l.reference(operation, target)
		if err := l.materialize(operation.location, target.instance); err != nil {
			return nil, nil, err
		}
		s.metrics.load(loadShared)
		return target.instance, target, nil
	}

	stream, err := s.files.Open(l.ctx, operation.location, vfs.Open, vfs.Read)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.notFound(operation.location)
			return nil, nil, nil
		}
		s.metrics.load(loadFailed)
		return nil, nil, &LoadError{Location: operation.location, Err: err}
	}
	defer stream.Close()

	value, loaded, err := l.read(operation, target, stream)
	if err != nil {
		s.metrics.load(loadFailed)
		return nil, nil, err
	}
	if err := l.materialize(operation.location, value); err != nil {
		return nil, nil, err
	}
	s.metrics.load(loadRead)
	return value, loaded, nil
}

// read deserializes the chunk in stream. target is the record to fill
// (placeholder or reload), or nil to create one.
func (l *loader) read(operation loadOperation, target *record, stream vfs.Stream) (any, *record, error) {
	s := l.store
	location := operation.location
	fail := func(err error) (any, *record, error) {
		return nil, nil, &LoadError{Location: location, Err: err}
	}

	header, err := chunk.ReadHeader(stream)
	if err != nil {
		return fail(err)
	}
	// Scanning the declared type first lets a load name the stored
	// types it provides even when they were never listed in
	// [Options.Types].
	scanErr := s.serializers.Scan(operation.declared)
	var storedType reflect.Type
	if header != nil {
		if header.Version != chunk.CurrentVersion {
			return fail(fmt.Errorf("unsupported chunk version %d", header.Version))
		}
		if !header.Finalized() {
			return fail(fmt.Errorf("chunk header was never finalized"))
		}
		var known bool
		storedType, known = s.serializers.Types().Resolve(header.Type)
		if !known {
			return fail(&ConfigurationError{Location: location, StoredTypeName: header.Type, DeclaredType: operation.declared, Err: scanErr})
		}
	}

	serializer := s.serializers.GetSerializer(storedType, operation.declared)
	if serializer == nil {
		return fail(&ConfigurationError{
			Location:     location,
			StoredType:   storedType,
			DeclaredType: operation.declared,
			Err:          s.serializers.Scan(storedType, operation.declared),
		})
	}

	chunkContext := &content.Context{
		Location:       location,
		Mode:           content.Deserialize,
		References:     &chunk.ReferenceTable{},
		LoadReferences: l.settings.LoadContentReferences,
		AllowStreaming: l.settings.AllowContentStreaming,
		Filter:         l.settings.ContentFilter,
		Types:          s.serializers.Types(),
		Resolver:       l,
	}

	// The table must be in hand before the body: the body refers to
	// it by index.
	if header != nil {
		if _, err := stream.Seek(int64(header.OffsetToReferences), io.SeekStart); err != nil {
			return fail(fmt.Errorf("seeking to reference table: %w", err))
		}
		table, err := chunk.ReadReferenceTable(stream)
		if err != nil {
			return fail(err)
		}
		chunkContext.References = table
		if _, err := stream.Seek(int64(header.OffsetToObject), io.SeekStart); err != nil {
			return fail(fmt.Errorf("seeking to object body: %w", err))
		}
	}

	created := target == nil
	if created {
		instance := operation.instance
		if instance == nil {
			if instance, err = serializer.Construct(chunkContext); err != nil {
				return fail(fmt.Errorf("constructing %v: %w", serializer.ActualType(), err))
			}
		}
		if err := checkInstance(instance); err != nil {
			return fail(err)
		}
		if existing, known := s.byInstance[instance]; known {
			return fail(fmt.Errorf("instance is already loaded from %s", existing.location))
		}
		target = newRecord(location, instance)
		s.insert(target)
	}

	// Marked before the body is read so that a self-reference binds
	// to this record instead of creating a placeholder.
	target.deserialized = true
	if err := serializer.Serialize(chunkContext, content.NewStream(stream), target.instance); err != nil {
		target.deserialized = false
		if created {
			s.remove(target)
		}
		return fail(err)
	}

	l.reference(operation, target)

	s.logger.Debug("loaded content",
		"location", location,
		"type", typeName(target.instance),
		"references", chunkContext.References.Len(),
	)

	for _, reference := range chunkContext.ContentReferences() {
		if reference.IsProxy() {
			continue
		}
		l.queue = append(l.queue, loadOperation{
			parent:   target,
			location: reference.Location,
			declared: reference.Type,
			instance: reference.Value,
		})
	}
	return target.instance, target, nil
}

// reference takes the reference operation stands for on r: public for
// a root request, private (once per parent) for a child.
func (l *loader) reference(operation loadOperation, r *record) {
	switch {
	case operation.target != nil:
	case operation.parent == nil:
		l.store.increment(r, true)
	default:
		l.store.addReference(operation.parent, r)
	}
}

func (l *loader) materialize(location string, instance any) error {
	if l.settings.AllowContentStreaming || l.store.streamer == nil || instance == nil {
		return nil
	}
	if err := l.store.streamer.FullyLoad(l.ctx, instance); err != nil {
		return &LoadError{Location: location, Err: fmt.Errorf("fully loading streamed content: %w", err)}
	}
	return nil
}

// LocationOf implements [content.Resolver].
func (l *loader) LocationOf(value any) (string, bool) {
	return l.store.locationOf(value)
}

// Placeholder implements [content.Resolver]. Two references to the
// same location in one load share the instance created here.
func (l *loader) Placeholder(location string, declared reflect.Type) (any, error) {
	s := l.store
	if existing := s.find(location, declared); existing != nil {
		return existing.instance, nil
	}
	if declared.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("reference type %v is not a pointer", declared)
	}

	var instance any
	if serializer := s.serializers.GetSerializer(nil, declared); serializer != nil {
		var err error
		instance, err = serializer.Construct(&content.Context{
			Location: location,
			Mode:     content.Deserialize,
			Types:    s.serializers.Types(),
		})
		if err != nil {
			return nil, fmt.Errorf("constructing placeholder %v: %w", declared, err)
		}
		if err := checkInstance(instance); err != nil {
			return nil, err
		}
		if !reflect.TypeOf(instance).AssignableTo(declared) {
			return nil, fmt.Errorf("serializer constructed %T for reference type %v", instance, declared)
		}
	} else {
		instance = reflect.New(declared.Elem()).Interface()
	}

	placeholder := newRecord(location, instance)
	s.insert(placeholder)
	l.placeholders = append(l.placeholders, placeholder)
	return instance, nil
}

// dropPlaceholders removes placeholders that were never filled in
// (their chunk was missing, filtered, or the load failed first).
func (l *loader) dropPlaceholders() {
	for _, placeholder := range l.placeholders {
		if placeholder.deserialized || placeholder.alive() {
			continue
		}
		if l.store.byInstance[placeholder.instance] != placeholder {
			continue
		}
		l.store.logger.Debug("dropping unfilled placeholder", "location", placeholder.location)
		l.store.remove(placeholder)
	}
	l.placeholders = nil
}

func (s *Store) notFound(location string) {
	err := &NotFoundError{Location: location}
	s.logger.Error("content not found", "location", location)
	s.metrics.load(loadNotFound)
	if s.onNotFound != nil {
		s.onNotFound(err)
	}
}
