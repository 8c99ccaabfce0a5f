// Package slug derives collection keys from free-text labels, the way new
// structure positions and work-program divisions are named by admins.
package slug

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyLabel is returned when a label is blank after trimming.
var ErrEmptyLabel = errors.New("label is empty")

// Derive normalizes a free-text label into a collection key: surrounding
// whitespace trimmed, internal whitespace runs collapsed to one underscore,
// lower-cased. "Wakil Ketua" becomes "wakil_ketua".
func Derive(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", ErrEmptyLabel
	}
	return strings.ToLower(strings.Join(strings.Fields(trimmed), "_")), nil
}

// Entry is a named position in a structure draft.
type Entry struct {
	Name       string
	UploadedAt time.Time
}

// Draft is the in-memory structure an admin edits before saving. Adding a
// label whose derived key already exists silently overwrites the previous
// entry; that mirrors the accepted behavior of the dashboard and is flagged
// as a design risk in DESIGN.md.
type Draft struct {
	entries map[string]Entry
	now     func() time.Time
}

// NewDraft starts an empty draft.
func NewDraft() *Draft {
	return &Draft{entries: make(map[string]Entry), now: time.Now}
}

// DraftOf starts a draft pre-populated from an existing collection.
func DraftOf(entries map[string]Entry) *Draft {
	draft := NewDraft()
	for key, entry := range entries {
		draft.entries[key] = entry
	}
	return draft
}

// Add derives a key from label and inserts an empty entry under it,
// stamped with the current instant. Returns the derived key.
func (d *Draft) Add(label string) (string, error) {
	key, err := Derive(label)
	if err != nil {
		return "", err
	}
	d.entries[key] = Entry{UploadedAt: d.now()}
	return key, nil
}

// SetName fills in the holder name for an existing entry.
func (d *Draft) SetName(key, name string) bool {
	entry, ok := d.entries[key]
	if !ok {
		return false
	}
	entry.Name = name
	d.entries[key] = entry
	return true
}

// Remove drops an entry from the draft.
func (d *Draft) Remove(key string) {
	delete(d.entries, key)
}

// Entries returns a copy of the draft's entries keyed by derived key.
func (d *Draft) Entries() map[string]Entry {
	out := make(map[string]Entry, len(d.entries))
	for key, entry := range d.entries {
		out[key] = entry
	}
	return out
}
