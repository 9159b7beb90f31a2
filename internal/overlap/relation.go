// Package overlap detects which rig cameras share field of view.
//
// The detector projects each camera's frustum geometry into every other
// camera's image and records a directed edge when enough of it lands inside
// the image. The result is then repaired into a symmetric Relation.
package overlap

import (
	"sort"
)

// Relation maps a camera id to the sorted ids of the cameras whose field of
// view overlaps it.
type Relation map[string][]string

// Has reports whether b is listed as overlapping a.
func (r Relation) Has(a, b string) bool {
	for _, c := range r[a] {
		if c == b {
			return true
		}
	}
	return false
}

// Add records that b overlaps a. It keeps the list sorted and ignores
// duplicates and self edges.
func (r Relation) Add(a, b string) {
	if a == b || r.Has(a, b) {
		return
	}
	list := append(r[a], b)
	sort.Strings(list)
	r[a] = list
}

// Cameras returns the sorted camera ids that have at least one overlap.
func (r Relation) Cameras() []string {
	ids := make([]string, 0, len(r))
	for id, list := range r {
		if len(list) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsSymmetric reports whether every edge has its reverse.
func (r Relation) IsSymmetric() bool {
	for a, list := range r {
		for _, b := range list {
			if !r.Has(b, a) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (r Relation) Clone() Relation {
	out := make(Relation, len(r))
	for k, v := range r {
		out[k] = append([]string(nil), v...)
	}
	return out
}
