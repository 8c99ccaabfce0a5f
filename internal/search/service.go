package search

import (
	"context"
	"log"

	"rohis/api/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to a
// snapshot scan.
type Service struct {
	meili *Meili
	scan  *Scanner
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, scan *Scanner) *Service {
	return &Service{meili: meili, scan: scan}
}

// Search tries Meilisearch if healthy, otherwise scans a snapshot.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	if s.meili != nil && s.meili.Healthy() {
		results, err := s.meili.Search(query)
		if err == nil {
			return results, nil
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}
	return s.scan.Search(ctx, query)
}

// Index adds or updates one activity in the index. A no-op without a
// healthy Meilisearch; the scan fallback always sees fresh data anyway.
func (s *Service) Index(_ context.Context, key string, activity store.Activity) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.Index(key, activity)
}

// Remove deletes one activity from the index.
func (s *Service) Remove(_ context.Context, key string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.Remove(key)
}

// Bootstrap bulk-indexes the current activities so Meilisearch catches up
// with the store.
func (s *Service) Bootstrap(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.scan == nil {
		return
	}
	activities, err := s.scan.snapshot(ctx)
	if err != nil {
		log.Printf("search: bootstrap snapshot: %v", err)
		return
	}
	if err := s.meili.IndexAll(activities); err != nil {
		log.Printf("search: bootstrap index: %v", err)
	}
}
