// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

// collect frees every loaded record not reachable from a record with a
// public reference, and returns how many it freed. It must be called
// with the store mutex held; a call made while a collection is already
// running (from a free it triggered) returns 0.
func (s *Store) collect() int {
	if s.collecting {
		return 0
	}
	s.collecting = true
	defer func() { s.collecting = false }()

	s.generation++
	generation := s.generation

	// Mark from every public root, chain siblings included.
	stack := s.sweepStack[:0]
	s.records(func(r *record) {
		if r.publicCount > 0 {
			stack = append(stack, r)
		}
	})
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if r.sweepMark == generation {
			continue
		}
		r.sweepMark = generation
		for child := range r.children {
			if child.sweepMark != generation {
				stack = append(stack, child)
			}
		}
	}
	clear(stack[:cap(stack)])
	s.sweepStack = stack[:0]

	// Placeholders of an in-flight load are not loaded yet and are
	// never candidates.
	candidates := make(map[*record]struct{})
	s.records(func(r *record) {
		if r.deserialized && r.sweepMark != generation {
			candidates[r] = struct{}{}
		}
	})
	if len(candidates) == 0 {
		s.metrics.collected(0)
		return 0
	}

	for candidate := range candidates {
		s.release(candidate)
		s.remove(candidate)
	}
	for candidate := range candidates {
		children := candidate.children
		candidate.children = make(map[*record]struct{})
		candidate.publicCount, candidate.privateCount = 0, 0
		for child := range children {
			if _, doomed := candidates[child]; doomed {
				continue
			}
			if err := s.decrement(child, false); err != nil {
				s.logger.Error("releasing reference from collected content failed",
					"location", candidate.location,
					"child", child.location,
					"error", err,
				)
			}
		}
	}

	s.logger.Debug("collected unreachable content", "count", len(candidates))
	s.metrics.collected(len(candidates))
	return len(candidates)
}
