package audit

import (
	"slices"

	"github.com/garyellow/admission-lists/internal/sliceutil"
)

// NameSet is a set of program display names.
type NameSet map[string]struct{}

// NewNameSet returns a set holding names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts name into the set.
func (s NameSet) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names.
func (s NameSet) Len() int {
	return len(s)
}

// Sorted returns the names in ascending order.
func (s NameSet) Sorted() []string {
	return sliceutil.SortedKeys(s)
}

// Difference returns the names of s that are not in other, sorted.
func (s NameSet) Difference(other NameSet) []string {
	var out []string
	for name := range s {
		if !other.Has(name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
