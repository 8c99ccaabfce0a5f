package feed

import "time"

// SelectActive picks the record that should currently be displayed out of a
// collection of time-windowed records: the most recently uploaded one whose
// validity window (uploadedAt + window) still contains now. Returns the
// record, its key, and false if the collection is empty or every record has
// expired. When two records share an upload instant (should not happen under
// one-per-day keying, but must not crash) the lexicographically greatest key
// wins, so the result is deterministic.
func SelectActive[T any](coll map[string]T, uploadedAt func(T) time.Time, now time.Time, window time.Duration) (T, string, bool) {
	var (
		best    T
		bestKey string
		bestAt  time.Time
		found   bool
	)

	for key, record := range coll {
		at := uploadedAt(record)
		expiry := at.Add(window)
		if now.After(expiry) {
			continue
		}
		if !found || at.After(bestAt) || (at.Equal(bestAt) && key > bestKey) {
			best, bestKey, bestAt = record, key, at
			found = true
		}
	}

	if !found {
		var zero T
		return zero, "", false
	}
	return best, bestKey, true
}
