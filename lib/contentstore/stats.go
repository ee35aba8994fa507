// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"cmp"
	"fmt"
	"slices"
)

// RecordInfo is a snapshot of one loaded record.
type RecordInfo struct {
	Location     string   `json:"location"`
	Type         string   `json:"type"`
	PublicCount  uint32   `json:"public_count"`
	PrivateCount uint32   `json:"private_count"`
	Deserialized bool     `json:"deserialized"`
	References   []string `json:"references,omitempty"`
}

// Stats is a snapshot of everything the store holds.
type Stats struct {
	Records []RecordInfo `json:"records"`
}

// Stats returns a snapshot of every record, ordered by location then
// type.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	s.records(func(r *record) {
		info := RecordInfo{
			Location:     r.location,
			Type:         typeName(r.instance),
			PublicCount:  r.publicCount,
			PrivateCount: r.privateCount,
			Deserialized: r.deserialized,
		}
		for child := range r.children {
			info.References = append(info.References, child.location)
		}
		slices.Sort(info.References)
		stats.Records = append(stats.Records, info)
	})
	slices.SortFunc(stats.Records, func(a, b RecordInfo) int {
		return cmp.Or(cmp.Compare(a.Location, b.Location), cmp.Compare(a.Type, b.Type))
	})
	return stats
}

// Find returns the snapshot for location and type name, if loaded.
func (stats Stats) Find(location, typeName string) (RecordInfo, bool) {
	for _, info := range stats.Records {
		if info.Location == location && (typeName == "" || info.Type == typeName) {
			return info, true
		}
	}
	return RecordInfo{}, false
}

func typeName(instance any) string {
	return fmt.Sprintf("%T", instance)
}
