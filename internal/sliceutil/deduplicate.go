// Package sliceutil provides generic slice manipulation utilities.
package sliceutil

import (
	"cmp"
	"slices"
)

// Deduplicate removes duplicate items from a slice while preserving order.
// The keyFunc extracts a unique key from each item for comparison.
// Only the first occurrence of each key is kept.
//
// Example:
//
//	records := []competition.ProgramRecord{{Name: "Физика"}, {Name: "Химия"}, {Name: "Физика"}}
//	unique := sliceutil.Deduplicate(records, func(r competition.ProgramRecord) string { return r.Name })
//	// Result: [{Name: "Физика"}, {Name: "Химия"}]
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]struct{}, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key := keyFunc(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result
}

// GroupBy buckets items by the key returned from keyFunc.
// Items inside a bucket keep their input order.
func GroupBy[T any, K comparable](items []T, keyFunc func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, item := range items {
		key := keyFunc(item)
		groups[key] = append(groups[key], item)
	}
	return groups
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
