// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"errors"
	"io"
)

func (s *Store) increment(r *record, public bool) {
	if public {
		r.publicCount++
	} else {
		r.privateCount++
	}
}

// decrement drops one reference. When none remain the record is freed.
// Whenever the public count reaches zero the collector then looks for
// cycles the release orphaned.
func (s *Store) decrement(r *record, public bool) error {
	if public {
		if r.publicCount == 0 {
			return &InvariantError{Location: r.location, Reason: "public reference count is already zero"}
		}
		r.publicCount--
	} else {
		if r.privateCount == 0 {
			return &InvariantError{Location: r.location, Reason: "private reference count is already zero"}
		}
		r.privateCount--
	}

	if !r.alive() {
		err := s.free(r)
		if public {
			s.collect()
		}
		return err
	}
	if public && r.publicCount == 0 {
		s.collect()
	}
	return nil
}

// addReference makes parent refer to child, taking a private
// reference the first time.
func (s *Store) addReference(parent, child *record) {
	if parent.addChild(child) {
		s.increment(child, false)
	}
}

// free releases r's instance, removes it from the store, and drops
// the private reference r held on each child.
func (s *Store) free(r *record) error {
	s.release(r)
	s.remove(r)

	children := r.children
	r.children = make(map[*record]struct{})
	var errs []error
	for child := range children {
		if err := s.decrement(child, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) release(r *record) {
	s.logger.Debug("releasing content", "location", r.location, "type", typeName(r.instance))
	switch instance := r.instance.(type) {
	case Releaser:
		instance.Release()
	case io.Closer:
		if err := instance.Close(); err != nil {
			s.logger.Warn("closing released content failed",
				"location", r.location,
				"error", err,
			)
		}
	}
	s.metrics.released()
}
