// Package store gives the rest of the service a realtime keyed-collection
// view of the data: flat maps of JSON records addressed by path, with
// change subscriptions pushing fresh snapshots to listeners.
package store

import (
	"encoding/json"
	"fmt"
)

// Collection is a snapshot of one stored collection: unique keys, raw JSON
// records, no ordering at rest. Ordering is always derived at display time.
type Collection map[string]json.RawMessage

// Decode unmarshals every record of a collection into T. A record that does
// not decode fails the whole call; collections are small and a bad record
// means a bug in a writer.
func Decode[T any](coll Collection) (map[string]T, error) {
	out := make(map[string]T, len(coll))
	for key, raw := range coll {
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}

// Encode marshals a typed map back into a Collection.
func Encode[T any](values map[string]T) (Collection, error) {
	coll := make(Collection, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", key, err)
		}
		coll[key] = raw
	}
	return coll, nil
}
