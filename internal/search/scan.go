package search

import (
	"context"
	"strings"

	"rohis/api/internal/feed"
	"rohis/api/internal/store"
)

// Scanner is the fallback backend: a case-insensitive substring scan over a
// fresh activities snapshot. Collections stay small enough that this holds
// up fine without an index.
type Scanner struct {
	snapshot func(ctx context.Context) (map[string]store.Activity, error)
}

// NewScanner creates a scanner over an activities snapshot provider.
func NewScanner(snapshot func(ctx context.Context) (map[string]store.Activity, error)) *Scanner {
	return &Scanner{snapshot: snapshot}
}

// Search returns matching activities, newest first.
func (s *Scanner) Search(ctx context.Context, query string) ([]Result, error) {
	activities, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	results := make([]Result, 0)
	for _, key := range feed.OrderedKeys(activities, store.Activity.UploadedAt, feed.ByDateDesc) {
		activity := activities[key]
		if needle != "" &&
			!strings.Contains(strings.ToLower(activity.Title), needle) &&
			!strings.Contains(strings.ToLower(activity.Description), needle) {
			continue
		}
		results = append(results, Result{
			Key:         key,
			Title:       activity.Title,
			Description: activity.Description,
			Image:       activity.Image,
			Date:        activity.Date,
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}
