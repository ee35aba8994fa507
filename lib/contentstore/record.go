// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"fmt"
	"reflect"
)

// record is the store's bookkeeping for one live instance. Records
// are owned by the store and touched only under its mutex.
type record struct {
	location string

	// instance is a non-nil pointer, set when the record is created
	// and never replaced.
	instance any

	// deserialized is false while the instance is a placeholder or
	// being (re)loaded.
	deserialized bool

	publicCount  uint32
	privateCount uint32

	// children are the records this instance refers to. Each entry
	// holds one private reference on the child.
	children map[*record]struct{}

	// next and prev link records sharing a location.
	next, prev *record

	// sweepMark is the last collection generation that reached this
	// record.
	sweepMark uint64
}

func newRecord(location string, instance any) *record {
	return &record{
		location: location,
		instance: instance,
		children: make(map[*record]struct{}),
	}
}

func (r *record) alive() bool {
	return r.publicCount+r.privateCount > 0
}

// addChild records a reference from r to child and reports whether it
// is new.
func (r *record) addChild(child *record) bool {
	if _, exists := r.children[child]; exists {
		return false
	}
	r.children[child] = struct{}{}
	return true
}

// checkInstance rejects instances that cannot key the instance table.
func checkInstance(instance any) error {
	if instance == nil {
		return fmt.Errorf("content instance is nil")
	}
	value := reflect.ValueOf(instance)
	if value.Kind() != reflect.Pointer {
		return fmt.Errorf("content instance %T is not a pointer", instance)
	}
	if value.IsNil() {
		return fmt.Errorf("content instance %T is a nil pointer", instance)
	}
	return nil
}

// find returns the first record at location whose instance is
// assignable to declared.
func (s *Store) find(location string, declared reflect.Type) *record {
	for candidate := s.byLocation[location]; candidate != nil; candidate = candidate.next {
		if reflect.TypeOf(candidate.instance).AssignableTo(declared) {
			return candidate
		}
	}
	return nil
}

// insert adds r to both tables. A record joining an existing location
// goes second in the chain so the head, which lookups by location
// alone resolve to, stays put.
func (s *Store) insert(r *record) {
	s.byInstance[r.instance] = r
	s.link(r)
}

func (s *Store) link(r *record) {
	head := s.byLocation[r.location]
	if head == nil {
		r.prev, r.next = nil, nil
		s.byLocation[r.location] = r
		return
	}
	r.prev = head
	r.next = head.next
	if head.next != nil {
		head.next.prev = r
	}
	head.next = r
}

// remove takes r out of both tables.
func (s *Store) remove(r *record) {
	s.unlink(r)
	if s.byInstance[r.instance] == r {
		delete(s.byInstance, r.instance)
	}
}

func (s *Store) unlink(r *record) {
	if r.prev != nil {
		r.prev.next = r.next
	} else if s.byLocation[r.location] == r {
		if r.next != nil {
			s.byLocation[r.location] = r.next
		} else {
			delete(s.byLocation, r.location)
		}
	}
	if r.next != nil {
		r.next.prev = r.prev
	}
	r.next, r.prev = nil, nil
}

// relocate moves r to the chain at location.
func (s *Store) relocate(r *record, location string) {
	s.unlink(r)
	r.location = location
	s.link(r)
}

// records calls visit for every record, chain by chain.
func (s *Store) records(visit func(*record)) {
	for _, head := range s.byLocation {
		for r := head; r != nil; r = r.next {
			visit(r)
		}
	}
}
