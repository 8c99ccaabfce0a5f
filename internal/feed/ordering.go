// Package feed contains the derived-state computations shared by every
// screen of the site: turning unordered keyed collections into display
// order, selecting the currently valid motivation record, and formatting
// its remaining validity.
package feed

import (
	"sort"
	"time"
)

// Strategy selects how a collection is ordered for display.
type Strategy int

const (
	// ByDateDesc orders newest first, for the news feed.
	ByDateDesc Strategy = iota
	// ByUploadedAsc orders first-assigned first, for the org structure.
	ByUploadedAsc
	// ByKeyDesc orders by descending key, the fallback for legacy comment
	// lists whose records carry no usable timestamp. Generated keys are
	// chronologically sortable, so this approximates newest first.
	ByKeyDesc
)

// Order returns the values of coll as a deterministically ordered slice.
// uploadedAt extracts a record's ordering instant; records it reports as
// the zero time sort last under ByDateDesc and first under ByUploadedAsc.
// uploadedAt may be nil for ByKeyDesc. Ties always break by key ascending.
func Order[T any](coll map[string]T, uploadedAt func(T) time.Time, strategy Strategy) []T {
	keys := OrderedKeys(coll, uploadedAt, strategy)
	ordered := make([]T, 0, len(keys))
	for _, key := range keys {
		ordered = append(ordered, coll[key])
	}
	return ordered
}

// OrderedKeys is Order for callers that need keys rather than values.
func OrderedKeys[T any](coll map[string]T, uploadedAt func(T) time.Time, strategy Strategy) []string {
	keys := make([]string, 0, len(coll))
	for key := range coll {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		switch strategy {
		case ByDateDesc:
			ti, tj := uploadedAt(coll[keys[i]]), uploadedAt(coll[keys[j]])
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
		case ByUploadedAsc:
			ti, tj := uploadedAt(coll[keys[i]]), uploadedAt(coll[keys[j]])
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
		case ByKeyDesc:
			if keys[i] != keys[j] {
				return keys[i] > keys[j]
			}
		}
		return keys[i] < keys[j]
	})
	return keys
}
