package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// PushKey returns a generated collection key that sorts chronologically:
// zero-padded unix milliseconds plus a random suffix to keep keys unique
// within the same millisecond.
func PushKey(at time.Time) string {
	bytes := make([]byte, 4)
	_, _ = rand.Read(bytes)
	return fmt.Sprintf("%013d_%s", at.UnixMilli(), hex.EncodeToString(bytes))
}

// NewID returns a random identifier, optionally prefixed.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
