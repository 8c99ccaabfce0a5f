package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	rs, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestPutAndSnapshot(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	activity := Activity{Title: "Kajian Rutin", Description: "Kajian jumat sore", Date: "2026-03-06T15:00:00Z"}
	if err := rs.Put(ctx, ActivitiesPath, "act1", activity); err != nil {
		t.Fatalf("Put: %v", err)
	}

	coll, err := rs.Snapshot(ctx, ActivitiesPath)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	decoded, err := Decode[Activity](coll)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := decoded["act1"]; got.Title != activity.Title || got.Date != activity.Date {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestAppendGeneratesSortableKeys(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
	clock := base
	rs.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	first, err := rs.Append(ctx, CommentsPath, Comment{Text: "pertama"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := rs.Append(ctx, CommentsPath, Comment{Text: "kedua"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if first >= second {
		t.Fatalf("expected chronologically sortable keys, got %s then %s", first, second)
	}

	coll, err := rs.Snapshot(ctx, CommentsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(coll) != 2 {
		t.Fatalf("expected 2 records, got %d", len(coll))
	}
}

func TestDelete(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	if err := rs.Put(ctx, ActivitiesPath, "act1", Activity{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := rs.Delete(ctx, ActivitiesPath, "act1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := rs.Delete(ctx, ActivitiesPath, "missing"); err != nil {
		t.Fatalf("Delete of absent key should not error: %v", err)
	}

	coll, err := rs.Snapshot(ctx, ActivitiesPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(coll) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(coll))
	}
}

func TestPutAllReplaces(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	if err := rs.Put(ctx, StructurePath, "stale", StructureEntry{Nama: "Lama"}); err != nil {
		t.Fatal(err)
	}

	fresh, err := Encode(map[string]StructureEntry{
		"ketua":       {Nama: "Andi", UploadedAt: 1},
		"wakil_ketua": {Nama: "Budi", UploadedAt: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.PutAll(ctx, StructurePath, fresh); err != nil {
		t.Fatalf("PutAll: %v", err)
	}

	coll, err := rs.Snapshot(ctx, StructurePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(coll) != 2 {
		t.Fatalf("expected 2 records after replace, got %d", len(coll))
	}
	if _, ok := coll["stale"]; ok {
		t.Fatal("stale record survived PutAll")
	}
}

func TestQueryByField(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	comments := map[string]Comment{
		"c1": {Text: "mantap", ActivityID: "act1"},
		"c2": {Text: "keren", ActivityID: "act2"},
		"c3": {Text: "semangat", ActivityID: "act1"},
		"c4": {Text: "tanpa induk"},
	}
	for key, c := range comments {
		if err := rs.Put(ctx, CommentsPath, key, c); err != nil {
			t.Fatal(err)
		}
	}

	matched, err := rs.QueryByField(ctx, CommentsPath, "activityId", "act1")
	if err != nil {
		t.Fatalf("QueryByField: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	for _, key := range []string{"c1", "c3"} {
		if _, ok := matched[key]; !ok {
			t.Errorf("expected %s in matches", key)
		}
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	if err := rs.Put(ctx, MotivationPath, "2026-03-06", Motivation{Text: "awal"}); err != nil {
		t.Fatal(err)
	}

	snapshots := make(chan Collection, 4)
	cancel, err := rs.Subscribe(ctx, MotivationPath, func(coll Collection) {
		snapshots <- coll
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	// Initial snapshot arrives without any write.
	select {
	case coll := <-snapshots:
		if len(coll) != 1 {
			t.Fatalf("expected initial snapshot with 1 record, got %d", len(coll))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot delivered")
	}

	if err := rs.Put(ctx, MotivationPath, "2026-03-07", Motivation{Text: "baru"}); err != nil {
		t.Fatal(err)
	}

	select {
	case coll := <-snapshots:
		if len(coll) != 2 {
			t.Fatalf("expected refreshed snapshot with 2 records, got %d", len(coll))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered after write")
	}
}

func TestSubscribeCancelDetaches(t *testing.T) {
	rs := setupTestStore(t)
	ctx := context.Background()

	delivered := make(chan struct{}, 8)
	cancel, err := rs.Subscribe(ctx, ActivitiesPath, func(Collection) {
		delivered <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}

	<-delivered // initial
	cancel()

	if err := rs.Put(ctx, ActivitiesPath, "after", Activity{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-delivered:
		t.Fatal("snapshot delivered after cancel")
	case <-time.After(200 * time.Millisecond):
	}
}
