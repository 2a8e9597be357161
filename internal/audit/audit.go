// Package audit compares the program names of an independently maintained
// registry with the keys of a generated competition id mapping.
//
// The comparison never fails: missing names and case drift are findings
// recorded in a Report, not errors.
package audit

import (
	"cmp"
	"slices"

	"github.com/garyellow/admission-lists/internal/sliceutil"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// CasePair is a registry name and a mapping key that differ only in letter case.
type CasePair struct {
	Registry string `json:"registry"`
	Mapping  string `json:"mapping"`
}

// Report is the outcome of comparing a registry with a mapping.
type Report struct {
	RegistrySize      int        `json:"registry_size"`
	MappingSize       int        `json:"mapping_size"`
	MissingInMapping  []string   `json:"missing_in_mapping"`  // registry names with no identical mapping key
	MissingInRegistry []string   `json:"missing_in_registry"` // mapping keys with no identical registry name
	CaseMismatches    []CasePair `json:"case_mismatches"`
}

// Consistent reports whether the two sources agree completely.
func (r Report) Consistent() bool {
	return len(r.MissingInMapping) == 0 && len(r.MissingInRegistry) == 0 && len(r.CaseMismatches) == 0
}

// Discrepancies returns the total number of findings.
func (r Report) Discrepancies() int {
	return len(r.MissingInMapping) + len(r.MissingInRegistry) + len(r.CaseMismatches)
}

// Compare audits registry names against mapping keys.
//
// MissingInMapping is registry - mapping and MissingInRegistry is
// mapping - registry, compared literally, so together they partition the
// symmetric difference of the two sets. CaseMismatches holds every pair (r, k)
// with r in registry, k in mapping, r != k and equal upper-cased forms; such
// names therefore also appear in the missing lists.
//
// Both sets are grouped by their upper-cased form and only the groups are
// crossed, so the cost is linear in the input plus the number of reported pairs.
// All result slices are sorted and non-nil.
func Compare(registry, mapping NameSet) Report {
	registryGroups := sliceutil.GroupBy(registry.Sorted(), stringutil.UpperKey)
	mappingGroups := sliceutil.GroupBy(mapping.Sorted(), stringutil.UpperKey)

	return Report{
		RegistrySize:      registry.Len(),
		MappingSize:       mapping.Len(),
		MissingInMapping:  nonNil(registry.Difference(mapping)),
		MissingInRegistry: nonNil(mapping.Difference(registry)),
		CaseMismatches:    casePairs(registryGroups, mappingGroups),
	}
}

// CompareFolded is Compare with case-insensitive missing lists: a name counts
// as missing only when the other source has no name with the same upper-cased
// form. Names whose counterpart differs only in letter case are reported in
// CaseMismatches alone.
func CompareFolded(registry, mapping NameSet) Report {
	registryGroups := sliceutil.GroupBy(registry.Sorted(), stringutil.UpperKey)
	mappingGroups := sliceutil.GroupBy(mapping.Sorted(), stringutil.UpperKey)

	return Report{
		RegistrySize:      registry.Len(),
		MappingSize:       mapping.Len(),
		MissingInMapping:  unmatchedGroups(registryGroups, mappingGroups),
		MissingInRegistry: unmatchedGroups(mappingGroups, registryGroups),
		CaseMismatches:    casePairs(registryGroups, mappingGroups),
	}
}

// unmatchedGroups returns the names of groups in a whose folded key is absent from b.
func unmatchedGroups(a, b map[string][]string) []string {
	out := []string{}
	for upper, names := range a {
		if _, ok := b[upper]; !ok {
			out = append(out, names...)
		}
	}
	slices.Sort(out)
	return out
}

func casePairs(registryGroups, mappingGroups map[string][]string) []CasePair {
	pairs := []CasePair{}
	for upper, regNames := range registryGroups {
		keys, ok := mappingGroups[upper]
		if !ok {
			continue
		}
		for _, r := range regNames {
			for _, k := range keys {
				if r != k {
					pairs = append(pairs, CasePair{Registry: r, Mapping: k})
				}
			}
		}
	}

	slices.SortFunc(pairs, func(a, b CasePair) int {
		return cmp.Or(cmp.Compare(a.Registry, b.Registry), cmp.Compare(a.Mapping, b.Mapping))
	})
	return pairs
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
