package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"rohis/api/internal/store"
)

const idxActivities = "rohis_activities"

type indexedActivity struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Date        string `json:"date"`
}

// Meili is the Meilisearch backend.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the activities
// index. The client keeps probing an unreachable instance so search
// recovers without a restart.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxActivities,
		PrimaryKey: "key",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxActivities, err)
	}

	searchable := []string{"title", "description"}
	if _, err := m.client.Index(idxActivities).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxActivities, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the activities index.
func (m *Meili) Search(query string) ([]Result, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxActivities).Search(query, &meili.SearchRequest{
		Limit: maxResults,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			Key:         decodeString(hit, "key"),
			Title:       decodeString(hit, "title"),
			Description: decodeString(hit, "description"),
			Image:       decodeString(hit, "image"),
			Date:        decodeString(hit, "date"),
		})
	}
	return results, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// Index adds or updates one activity in the search index.
func (m *Meili) Index(key string, activity store.Activity) error {
	doc := indexedActivity{
		Key:         key,
		Title:       activity.Title,
		Description: activity.Description,
		Image:       activity.Image,
		Date:        activity.Date,
	}
	_, err := m.client.Index(idxActivities).AddDocuments([]indexedActivity{doc}, nil)
	return err
}

// Remove deletes one activity from the search index.
func (m *Meili) Remove(key string) error {
	_, err := m.client.Index(idxActivities).DeleteDocument(key, nil)
	return err
}

// IndexAll bulk-indexes the whole activities collection, called at
// bootstrap so the index catches up with writes made while it was down.
func (m *Meili) IndexAll(activities map[string]store.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	docs := make([]indexedActivity, 0, len(activities))
	for key, activity := range activities {
		docs = append(docs, indexedActivity{
			Key:         key,
			Title:       activity.Title,
			Description: activity.Description,
			Image:       activity.Image,
			Date:        activity.Date,
		})
	}
	_, err := m.client.Index(idxActivities).AddDocuments(docs, nil)
	return err
}
