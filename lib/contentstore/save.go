// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/bureau-foundation/contentstore/lib/chunk"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

// saveOperation is one entry in the save work queue.
type saveOperation struct {
	// parent is the record whose chunk referred to this instance, or
	// nil for the caller's root request.
	parent *record

	location    string
	instance    any
	storageType reflect.Type
}

// saver runs one breadth-first save. It is the [content.Resolver] for
// every chunk it writes.
type saver struct {
	store *Store
	ctx   context.Context
	queue []saveOperation

	// queued maps instances waiting in the queue to their locations,
	// so a reference written before its target is saved can still be
	// located.
	queued map[any]string
}

// saveGraph writes first and every instance it reaches. If a later
// chunk fails, the root record's public reference is dropped again so
// the partially registered graph is freed; chunks already written stay
// on disk.
func (s *Store) saveGraph(ctx context.Context, first saveOperation) error {
	v := &saver{
		store:  s,
		ctx:    ctx,
		queue:  []saveOperation{first},
		queued: map[any]string{first.instance: first.location},
	}

	var root *record
	for processed := 0; len(v.queue) > 0; processed++ {
		operation := v.queue[0]
		v.queue = v.queue[1:]
		delete(v.queued, operation.instance)

		saved, err := v.saveOne(operation)
		if err != nil {
			if root != nil {
				if releaseErr := s.decrement(root, true); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return err
		}
		if processed == 0 {
			root = saved
		}
	}
	return nil
}

// saveOne writes one chunk. An instance the store already holds is not
// written again; it only gains a reference from operation's parent.
// It returns the record that took a public reference, if any.
func (v *saver) saveOne(operation saveOperation) (*record, error) {
	s := v.store
	if existing, known := s.byInstance[operation.instance]; known {
		if operation.parent != nil {
			s.addReference(operation.parent, existing)
		}
		s.metrics.save(saveSkipped)
		return nil, nil
	}

	references, err := v.write(operation)
	if err != nil {
		s.metrics.save(saveFailed)
		return nil, &SaveError{Location: operation.location, Err: err}
	}

	saved := newRecord(operation.location, operation.instance)
	saved.deserialized = true
	s.insert(saved)
	var public *record
	if operation.parent == nil {
		s.increment(saved, true)
		public = saved
	} else {
		s.addReference(operation.parent, saved)
	}
	s.metrics.save(saveWritten)
	s.logger.Debug("saved content",
		"location", operation.location,
		"type", typeName(operation.instance),
		"references", len(references),
	)

	for _, reference := range references {
		if reference.IsProxy() {
			continue
		}
		if _, pending := v.queued[reference.Value]; !pending {
			v.queued[reference.Value] = reference.Location
		}
		v.queue = append(v.queue, saveOperation{
			parent:   saved,
			location: reference.Location,
			instance: reference.Value,
		})
	}
	return public, nil
}

// write serializes operation's instance into a new chunk and returns
// the references its body made.
func (v *saver) write(operation saveOperation) ([]content.Reference, error) {
	s := v.store
	if err := checkInstance(operation.instance); err != nil {
		return nil, err
	}
	actualType := reflect.TypeOf(operation.instance)
	serializer := s.serializers.GetSerializer(operation.storageType, actualType)
	if serializer == nil {
		return nil, &ConfigurationError{
			Location:     operation.location,
			StoredType:   operation.storageType,
			DeclaredType: actualType,
			Err:          s.serializers.Scan(operation.storageType, actualType),
		}
	}

	var header *chunk.Header
	if storedType := serializer.StoredType(); storedType != nil {
		name, named := s.serializers.Types().NameOf(storedType)
		if !named {
			return nil, &ConfigurationError{Location: operation.location, StoredType: storedType, DeclaredType: actualType}
		}
		header = chunk.NewHeader(name)
	}

	stream, err := s.files.Open(v.ctx, operation.location, vfs.Create, vfs.Write)
	if err != nil {
		return nil, err
	}

	chunkContext := &content.Context{
		Location:   operation.location,
		Mode:       content.Serialize,
		References: &chunk.ReferenceTable{},
		Types:      s.serializers.Types(),
		Resolver:   v,
	}
	if err := v.writeChunk(stream, header, serializer, chunkContext, operation.instance); err != nil {
		vfs.Discard(stream)
		return nil, err
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("closing chunk: %w", err)
	}
	references := chunkContext.ContentReferences()
	for _, reference := range references {
		if reference.IsProxy() {
			continue
		}
		if err := checkInstance(reference.Value); err != nil {
			return nil, fmt.Errorf("reference to %s: %w", reference.Location, err)
		}
	}
	return references, nil
}

// writeChunk lays out header, body and reference table. The header is
// written twice: first with unknown offsets to reserve its bytes, then
// again in place once the body and table positions are known.
func (v *saver) writeChunk(stream vfs.Stream, header *chunk.Header, serializer content.Serializer, chunkContext *content.Context, instance any) error {
	if header != nil {
		if err := header.Write(stream); err != nil {
			return err
		}
		header.OffsetToObject = int32(header.Size())
	}

	if err := serializer.Serialize(chunkContext, content.NewStream(stream), instance); err != nil {
		return err
	}

	if header == nil {
		if chunkContext.References.Len() > 0 {
			return fmt.Errorf("headerless serializer %T wrote %d references", serializer, chunkContext.References.Len())
		}
		return nil
	}

	position, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("locating reference table: %w", err)
	}
	if position > math.MaxInt32 {
		return fmt.Errorf("chunk body ends at %d, beyond the 2 GiB offset limit", position)
	}
	header.OffsetToReferences = int32(position)
	if err := chunkContext.References.Write(stream); err != nil {
		return err
	}

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding to patch header: %w", err)
	}
	return header.Write(stream)
}

// LocationOf implements [content.Resolver].
func (v *saver) LocationOf(value any) (string, bool) {
	if location, known := v.store.locationOf(value); known {
		return location, true
	}
	location, queued := v.queued[value]
	return location, queued
}

// Placeholder implements [content.Resolver]. Saving never binds
// references, so it is never asked for one.
func (v *saver) Placeholder(location string, declared reflect.Type) (any, error) {
	return nil, fmt.Errorf("placeholder for %s requested while saving", location)
}
