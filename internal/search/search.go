// Package search finds activities by title or description. Meilisearch is
// the primary backend; a plain snapshot scan covers deployments without it.
package search

// Result is one activity hit.
type Result struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Date        string `json:"date"`
}

const maxResults = 20
