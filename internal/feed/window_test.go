package feed

import (
	"testing"
	"time"
)

const week = 7 * 24 * time.Hour

func TestSelectActivePicksMostRecentValid(t *testing.T) {
	d0 := day(0)
	coll := collection(
		rec{Key: "A", At: d0},
		rec{Key: "B", At: d0.AddDate(0, 0, 1)},
	)

	got, key, ok := SelectActive(coll, recAt, d0.AddDate(0, 0, 6), week)
	if !ok {
		t.Fatal("expected an active record")
	}
	if key != "B" || !got.At.Equal(coll["B"].At) {
		t.Fatalf("expected B active, got %s", key)
	}
}

func TestSelectActiveAllExpired(t *testing.T) {
	d0 := day(0)
	coll := collection(
		rec{Key: "A", At: d0},
		rec{Key: "B", At: d0.AddDate(0, 0, 1)},
	)

	if _, key, ok := SelectActive(coll, recAt, d0.AddDate(0, 0, 9), week); ok {
		t.Fatalf("expected no active record, got %s", key)
	}
}

func TestSelectActiveBoundaryInclusive(t *testing.T) {
	// A record is active up to and including the exact expiry instant.
	d0 := day(0)
	coll := collection(rec{Key: "only", At: d0})

	if _, _, ok := SelectActive(coll, recAt, d0.Add(week), week); !ok {
		t.Error("expected record still active at exact expiry")
	}
	if _, _, ok := SelectActive(coll, recAt, d0.Add(week+time.Second), week); ok {
		t.Error("expected record expired one second past expiry")
	}
}

func TestSelectActiveEmpty(t *testing.T) {
	if _, _, ok := SelectActive(map[string]rec{}, recAt, day(0), week); ok {
		t.Fatal("expected no active record for empty collection")
	}
}

func TestSelectActiveTieBreaksByGreatestKey(t *testing.T) {
	d0 := day(0)
	coll := collection(
		rec{Key: "2026-01-01", At: d0},
		rec{Key: "2026-01-02", At: d0},
	)

	_, key, ok := SelectActive(coll, recAt, d0.Add(time.Hour), week)
	if !ok {
		t.Fatal("expected an active record")
	}
	if key != "2026-01-02" {
		t.Fatalf("expected lexicographically greatest key to win, got %s", key)
	}
}

func TestSelectActiveSkipsExpiredNewest(t *testing.T) {
	// The newest record being expired must not shadow an older valid one.
	// Cannot happen with a fixed shared window, but guards against a
	// per-record window regression.
	d0 := day(0)
	coll := collection(
		rec{Key: "old", At: d0.AddDate(0, 0, -10)},
		rec{Key: "recent", At: d0},
	)

	_, key, ok := SelectActive(coll, recAt, d0.AddDate(0, 0, 2), week)
	if !ok || key != "recent" {
		t.Fatalf("expected recent active, got %s ok=%v", key, ok)
	}
}
