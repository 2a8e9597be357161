package competition

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/sliceutil"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// BuildStats describes a Build run for diagnostics.
type BuildStats struct {
	Processed  int `json:"processed"`  // records read
	Unique     int `json:"unique"`     // names kept in the mapping
	Duplicates int `json:"duplicates"` // records discarded because their name was already seen

	// CaseCollisions lists groups of distinct keys that are equal after
	// upper-casing. Each group is sorted; groups are ordered by their first key.
	CaseCollisions [][]string `json:"case_collisions,omitempty"`
}

// Mapping is an immutable program name to CompetitionIDs lookup.
// It is safe for concurrent use once constructed.
type Mapping struct {
	entries map[string]CompetitionIDs
	keys    []string          // ascending, fixes the case-insensitive scan order
	byUpper map[string]string // upper key -> first matching key in scan order
}

// Build constructs a Mapping from records in input order.
//
// Records whose name was already added are skipped, so the first occurrence wins.
// Names are compared case-sensitively. A record with an empty or whitespace-only
// name fails the whole batch with a *errors.ValidationError; no partial mapping
// is returned in that case.
func Build(records []ProgramRecord) (*Mapping, BuildStats, error) {
	for i, r := range records {
		if stringutil.IsBlank(r.Name) {
			return nil, BuildStats{}, apperrors.NewValidationError(
				fmt.Sprintf("records[%d].name", i), "program name is required")
		}
	}

	unique := sliceutil.Deduplicate(records, func(r ProgramRecord) string { return r.Name })

	entries := make(map[string]CompetitionIDs, len(unique))
	for _, r := range unique {
		entries[r.Name] = IDsFromRecord(r)
	}

	m := newMapping(entries)
	stats := BuildStats{
		Processed:      len(records),
		Unique:         len(entries),
		Duplicates:     len(records) - len(entries),
		CaseCollisions: m.CaseCollisions(),
	}
	return m, stats, nil
}

// BuildStrict behaves like Build but rejects mappings in which two keys differ
// only in letter case. The returned error wraps errors.ErrCaseCollision.
func BuildStrict(records []ProgramRecord) (*Mapping, BuildStats, error) {
	m, stats, err := Build(records)
	if err != nil {
		return nil, stats, err
	}
	if len(stats.CaseCollisions) > 0 {
		return nil, stats, fmt.Errorf("%w: %q", apperrors.ErrCaseCollision, stats.CaseCollisions)
	}
	return m, stats, nil
}

// NewMapping rebuilds a Mapping from already derived entries, e.g. a stored run
// or a serialized artifact. The input map is copied. Names must be non-blank
// and every identifier must be empty or ASCII digits.
func NewMapping(entries map[string]CompetitionIDs) (*Mapping, error) {
	for name, ids := range entries {
		if stringutil.IsBlank(name) {
			return nil, apperrors.NewValidationError("entries", "program name is required")
		}
		for _, q := range AllQuotas {
			if id := ids.ByQuota(q); id != "" && !stringutil.IsNumeric(id) {
				return nil, apperrors.NewValidationError(
					fmt.Sprintf("entries[%q].%s", name, q), fmt.Sprintf("competition id %q is not numeric", id))
			}
		}
	}
	return newMapping(maps.Clone(entries)), nil
}

func newMapping(entries map[string]CompetitionIDs) *Mapping {
	if entries == nil {
		entries = map[string]CompetitionIDs{}
	}
	keys := sliceutil.SortedKeys(entries)
	byUpper := make(map[string]string, len(keys))
	for _, k := range keys {
		upper := stringutil.UpperKey(k)
		if _, ok := byUpper[upper]; !ok {
			byUpper[upper] = k
		}
	}
	return &Mapping{entries: entries, keys: keys, byUpper: byUpper}
}

// Lookup resolves name to its CompetitionIDs.
//
// An exact key match is tried first. Otherwise the first key, in ascending key
// order, whose upper-cased form equals the upper-cased name is used. A miss
// returns the zero CompetitionIDs and false.
func (m *Mapping) Lookup(name string) (CompetitionIDs, bool) {
	if m == nil {
		return CompetitionIDs{}, false
	}
	if ids, ok := m.entries[name]; ok {
		return ids, true
	}
	if key, ok := m.byUpper[stringutil.UpperKey(name)]; ok {
		return m.entries[key], true
	}
	return CompetitionIDs{}, false
}

// Resolve is Lookup that also reports which stored key matched.
func (m *Mapping) Resolve(name string) (key string, ids CompetitionIDs, found bool) {
	if m == nil {
		return "", CompetitionIDs{}, false
	}
	if ids, ok := m.entries[name]; ok {
		return name, ids, true
	}
	if key, ok := m.byUpper[stringutil.UpperKey(name)]; ok {
		return key, m.entries[key], true
	}
	return "", CompetitionIDs{}, false
}

// Get returns the entry stored under exactly name.
func (m *Mapping) Get(name string) (CompetitionIDs, bool) {
	if m == nil {
		return CompetitionIDs{}, false
	}
	ids, ok := m.entries[name]
	return ids, ok
}

// Len returns the number of programs in the mapping.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Names returns all keys in ascending order. The slice is a copy.
func (m *Mapping) Names() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Entries returns a copy of the underlying map.
func (m *Mapping) Entries() map[string]CompetitionIDs {
	if m == nil {
		return map[string]CompetitionIDs{}
	}
	return maps.Clone(m.entries)
}

// WithoutIDs returns, in ascending order, the names that have no identifier
// for any quota.
func (m *Mapping) WithoutIDs() []string {
	if m == nil {
		return nil
	}
	var names []string
	for _, k := range m.keys {
		if m.entries[k].IsEmpty() {
			names = append(names, k)
		}
	}
	return names
}

// CaseCollisions returns groups of keys that are equal after upper-casing.
func (m *Mapping) CaseCollisions() [][]string {
	if m == nil {
		return nil
	}
	groups := sliceutil.GroupBy(m.keys, stringutil.UpperKey)

	var collisions [][]string
	for _, group := range groups {
		if len(group) > 1 {
			collisions = append(collisions, group) // keys are sorted, so each group is too
		}
	}
	slices.SortFunc(collisions, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return collisions
}
