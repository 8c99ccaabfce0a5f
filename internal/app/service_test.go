package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rohis/api/internal/authpw"
	"rohis/api/internal/config"
	"rohis/api/internal/session"
	"rohis/api/internal/slug"
	"rohis/api/internal/store"
)

// memStore is an in-memory dataStore. failDelete, when set, lets a test
// make specific deletions fail.
type memStore struct {
	mu         sync.Mutex
	data       map[string]store.Collection
	failDelete func(path, key string) error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]store.Collection{}}
}

func (m *memStore) Snapshot(_ context.Context, path string) (store.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(store.Collection, len(m.data[path]))
	for k, v := range m.data[path] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Put(_ context.Context, path, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[path] == nil {
		m.data[path] = store.Collection{}
	}
	m.data[path][key] = raw
	return nil
}

func (m *memStore) PutAll(_ context.Context, path string, values store.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := make(store.Collection, len(values))
	for k, v := range values {
		coll[k] = v
	}
	m.data[path] = coll
	return nil
}

func (m *memStore) Append(ctx context.Context, path string, value any) (string, error) {
	m.mu.Lock()
	m.seq++
	key := fmt.Sprintf("-K%05d", m.seq)
	m.mu.Unlock()
	return key, m.Put(ctx, path, key, value)
}

func (m *memStore) Delete(_ context.Context, path, key string) error {
	if m.failDelete != nil {
		if err := m.failDelete(path, key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[path], key)
	return nil
}

func (m *memStore) QueryByField(ctx context.Context, path, field, value string) (store.Collection, error) {
	snap, err := m.Snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	matched := store.Collection{}
	for key, raw := range snap {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		var got string
		if err := json.Unmarshal(fields[field], &got); err != nil {
			continue
		}
		if got == value {
			matched[key] = raw
		}
	}
	return matched, nil
}

func (m *memStore) Subscribe(ctx context.Context, path string, fn func(store.Collection)) (func(), error) {
	snap, err := m.Snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	fn(snap)
	return func() {}, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

type fakeSessions struct {
	mu   sync.Mutex
	data map[string]session.Identity
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: map[string]session.Identity{}}
}

func (f *fakeSessions) Save(_ context.Context, hash string, identity session.Identity, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[hash] = identity
	return nil
}

func (f *fakeSessions) Lookup(_ context.Context, hash string) (session.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.data[hash]
	if !ok {
		return session.Identity{}, errors.New("not found")
	}
	return identity, nil
}

func (f *fakeSessions) Revoke(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, hash)
	return nil
}

func (f *fakeSessions) Ping(context.Context) error { return nil }

type fakeAuth struct {
	email    string
	password string
	admin    authpw.Admin
	ensured  int
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (authpw.Admin, error) {
	if email == f.email && password == f.password {
		return f.admin, nil
	}
	return authpw.Admin{}, authpw.ErrInvalidCredentials
}

func (f *fakeAuth) EnsureAdmin(_ context.Context, email, password, name string) error {
	f.ensured++
	return nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(ms *memStore) *Service {
	return &Service{
		cfg: config.Config{
			TokenSecret:      "test-secret",
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       time.Hour,
			MotivationWindow: 7 * 24 * time.Hour,
		},
		store:    ms,
		sessions: newFakeSessions(),
		auth:     &fakeAuth{email: "admin@rohis.sch.id", password: "pw", admin: authpw.Admin{ID: "adm1", Name: "Pembina"}},
		now:      func() time.Time { return testNow },
	}
}

func seed(t *testing.T, ms *memStore, path, key string, value any) {
	t.Helper()
	if err := ms.Put(context.Background(), path, key, value); err != nil {
		t.Fatalf("seed %s/%s: %v", path, key, err)
	}
}

func TestDeleteActivityCascades(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	seed(t, ms, store.ActivitiesPath, "act1", store.Activity{Title: "Kajian", Description: "x", Date: testNow.Format(time.RFC3339)})
	seed(t, ms, store.ActivitiesPath, "act2", store.Activity{Title: "Mabit", Description: "y", Date: testNow.Format(time.RFC3339)})
	seed(t, ms, store.CommentsPath, "c1", store.Comment{Text: "a", ActivityID: "act1", Date: 1})
	seed(t, ms, store.CommentsPath, "c2", store.Comment{Text: "b", ActivityID: "act2", Date: 2})
	seed(t, ms, store.CommentsPath, "c3", store.Comment{Text: "c", ActivityID: "act1", Date: 3})

	if err := svc.DeleteActivity(ctx, "act1"); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}

	activities, _ := ms.Snapshot(ctx, store.ActivitiesPath)
	if _, gone := activities["act1"]; gone {
		t.Fatal("act1 still present")
	}
	if _, kept := activities["act2"]; !kept {
		t.Fatal("act2 was deleted")
	}

	comments, _ := ms.Snapshot(ctx, store.CommentsPath)
	if len(comments) != 1 {
		t.Fatalf("expected only c2 to survive, got %d comments", len(comments))
	}
	if _, kept := comments["c2"]; !kept {
		t.Fatal("c2, attached to another activity, was deleted")
	}
}

func TestDeleteActivityPartialCascade(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	seed(t, ms, store.ActivitiesPath, "act1", store.Activity{Title: "Kajian", Description: "x"})
	seed(t, ms, store.CommentsPath, "c1", store.Comment{Text: "a", ActivityID: "act1"})
	seed(t, ms, store.CommentsPath, "c2", store.Comment{Text: "b", ActivityID: "act1"})

	ms.failDelete = func(path, key string) error {
		if path == store.CommentsPath && key == "c1" {
			return errors.New("boom")
		}
		return nil
	}

	err := svc.DeleteActivity(ctx, "act1")
	var partial *PartialCascadeError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialCascadeError, got %v", err)
	}
	if partial.ActivityKey != "act1" {
		t.Fatalf("wrong activity key: %s", partial.ActivityKey)
	}
	if len(partial.Remaining) != 1 || partial.Remaining[0] != "c1" {
		t.Fatalf("expected remaining [c1], got %v", partial.Remaining)
	}

	// The activity stays deleted despite the partial failure.
	activities, _ := ms.Snapshot(ctx, store.ActivitiesPath)
	if _, gone := activities["act1"]; gone {
		t.Fatal("activity deletion was rolled back")
	}
	comments, _ := ms.Snapshot(ctx, store.CommentsPath)
	if _, kept := comments["c1"]; !kept {
		t.Fatal("failed comment should still exist")
	}
	if _, gone := comments["c2"]; gone {
		t.Fatal("c2 should have been deleted")
	}
}

func TestDeleteActivityUnknown(t *testing.T) {
	svc := newTestService(newMemStore())
	err := svc.DeleteActivity(context.Background(), "nope")
	var derr *DomainError
	if !errors.As(err, &derr) || derr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestListActivitiesNewestFirst(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)

	seed(t, ms, store.ActivitiesPath, "a", store.Activity{Title: "Old", Description: "x", Date: "2026-03-01T10:00:00Z"})
	seed(t, ms, store.ActivitiesPath, "b", store.Activity{Title: "New", Description: "x", Date: "2026-03-09T10:00:00Z"})
	seed(t, ms, store.ActivitiesPath, "c", store.Activity{Title: "Mid", Description: "x", Date: "2026-03-05T10:00:00Z"})

	views, err := svc.ListActivities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := []string{views[0].Title, views[1].Title, views[2].Title}
	want := []string{"New", "Mid", "Old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wrong order: got %v, want %v", got, want)
		}
	}
}

func TestCreateActivityValidation(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.CreateActivity(context.Background(), ActivityInput{Title: "  ", Description: "body"})
	var derr *DomainError
	if !errors.As(err, &derr) || derr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestUpdateActivityKeepsDate(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, ActivityInput{Title: "Kajian", Description: "first"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateActivity(ctx, created.Key, ActivityInput{Title: "Kajian Rutin", Description: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Date != created.Date {
		t.Fatalf("publication date changed on edit: %s -> %s", created.Date, updated.Date)
	}
	if updated.Title != "Kajian Rutin" {
		t.Fatalf("title not updated: %s", updated.Title)
	}
}

func TestAddCommentDefaultsAndValidation(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	if _, err := svc.AddComment(ctx, CommentInput{Text: "   "}); err == nil {
		t.Fatal("expected error for blank text")
	}

	long := make([]rune, maxCommentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.AddComment(ctx, CommentInput{Text: string(long)}); err == nil {
		t.Fatal("expected error for overlong text")
	}

	view, err := svc.AddComment(ctx, CommentInput{Text: "mantap", ActivityID: "act1"})
	if err != nil {
		t.Fatal(err)
	}
	if view.Name != "Anonim" {
		t.Fatalf("blank name should default to Anonim, got %q", view.Name)
	}
	if view.Likes != 0 {
		t.Fatalf("new comment should start at zero likes, got %d", view.Likes)
	}
	if view.Date != testNow.UnixMilli() {
		t.Fatalf("comment not stamped: %d", view.Date)
	}
}

func TestLikeComment(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	seed(t, ms, store.CommentsPath, "c1", store.Comment{Text: "a", Likes: 3})

	for want := 4; want <= 5; want++ {
		got, err := svc.LikeComment(ctx, "c1")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("likes = %d, want %d", got, want)
		}
	}

	if _, err := svc.LikeComment(ctx, "nope"); err == nil {
		t.Fatal("expected 404 for unknown comment")
	}
}

func TestListCommentsOrdering(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	seed(t, ms, store.CommentsPath, "c1", store.Comment{Text: "newer", Date: 2000, ActivityID: "act1"})
	seed(t, ms, store.CommentsPath, "c2", store.Comment{Text: "older", Timestamp: 1000, ActivityID: "act1"})
	seed(t, ms, store.CommentsPath, "c3", store.Comment{Text: "other", Date: 1500, ActivityID: "act2"})

	views, err := svc.ListComments(ctx, "act1")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 comments for act1, got %d", len(views))
	}
	if views[0].Text != "older" || views[1].Text != "newer" {
		t.Fatalf("expected oldest first, got %s then %s", views[0].Text, views[1].Text)
	}
}

func TestListCommentsLegacyFallback(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)

	// No record carries a timestamp: order falls back to descending key.
	seed(t, ms, store.CommentsPath, "-K00001", store.Comment{Text: "first"})
	seed(t, ms, store.CommentsPath, "-K00002", store.Comment{Text: "second"})

	views, err := svc.ListComments(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if views[0].Key != "-K00002" || views[1].Key != "-K00001" {
		t.Fatalf("expected descending key order, got %s then %s", views[0].Key, views[1].Key)
	}
}

func TestPostMotivationSameDayOverwrite(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	key1, err := svc.PostMotivation(ctx, MotivationInput{Text: "pagi", Author: "Ali"})
	if err != nil {
		t.Fatal(err)
	}
	key2, err := svc.PostMotivation(ctx, MotivationInput{Text: "sore"})
	if err != nil {
		t.Fatal(err)
	}
	if key1 != key2 || key1 != "2026-03-10" {
		t.Fatalf("same-day posts should share the day key, got %s and %s", key1, key2)
	}

	coll, _ := ms.Snapshot(ctx, store.MotivationPath)
	if len(coll) != 1 {
		t.Fatalf("expected a single record, got %d", len(coll))
	}

	view, err := svc.ActiveMotivation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Active || view.Record.Text != "sore" {
		t.Fatalf("expected the later post to be active, got %+v", view)
	}
	if view.Record.Author != "" {
		t.Fatalf("author is optional and should stay empty, got %q", view.Record.Author)
	}

	var record store.Motivation
	if err := json.Unmarshal(coll[key2], &record); err != nil {
		t.Fatal(err)
	}
	if record.Author != "" {
		t.Fatalf("stored record should carry no author placeholder, got %q", record.Author)
	}
}

func TestActiveMotivationExpired(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	old := testNow.Add(-8 * 24 * time.Hour)
	seed(t, ms, store.MotivationPath, old.Format("2006-01-02"), store.Motivation{
		Text: "lama", UploadedAt: old.Format(time.RFC3339),
	})

	view, err := svc.ActiveMotivation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Active {
		t.Fatalf("expired record should not be active: %+v", view)
	}
}

func TestActiveMotivationCountdown(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	at := testNow.Add(-6 * 24 * time.Hour)
	seed(t, ms, store.MotivationPath, at.Format("2006-01-02"), store.Motivation{
		Text: "semangat", UploadedAt: at.Format(time.RFC3339),
	})

	view, err := svc.ActiveMotivation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Active {
		t.Fatal("record inside the window should be active")
	}
	if view.Remaining.Days != 1 || view.Remaining.Hours != 0 || view.Remaining.Minutes != 0 {
		t.Fatalf("expected 1d0h0m remaining, got %+v", view.Remaining)
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()

	if _, err := svc.Login(ctx, "admin@rohis.sch.id", "wrong"); !errors.Is(err, authpw.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	sess, err := svc.Login(ctx, "admin@rohis.sch.id", "pw")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.Authenticate(sess.Token)
	if err != nil {
		t.Fatalf("access token rejected: %v", err)
	}
	if claims.Sub != "adm1" || claims.Name != "Pembina" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	rotated, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); err == nil {
		t.Fatal("old refresh token should be revoked after rotation")
	}

	if err := svc.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err == nil {
		t.Fatal("refresh should fail after logout")
	}
}

func TestSaveStructureBackfillsUploadedAt(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	err := svc.SaveStructure(ctx, map[string]store.StructureEntry{
		"ketua":      {Nama: "Budi", UploadedAt: 1000},
		"sekretaris": {Nama: "Sari"},
	})
	if err != nil {
		t.Fatal(err)
	}

	views, err := svc.Structure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(views))
	}
	// The pre-stamped entry keeps its instant and sorts first.
	if views[0].Key != "ketua" || views[0].UploadedAt != 1000 {
		t.Fatalf("existing stamp was not preserved: %+v", views[0])
	}
	if views[1].UploadedAt != testNow.UnixMilli() {
		t.Fatalf("missing stamp was not backfilled: %+v", views[1])
	}
}

func TestAddPosition(t *testing.T) {
	svc := newTestService(newMemStore())

	draft := map[string]store.StructureEntry{"ketua": {Nama: "Budi", UploadedAt: 1000}}
	key, out, err := svc.AddPosition(draft, "  Wakil   Ketua ")
	if err != nil {
		t.Fatal(err)
	}
	if key != "wakil_ketua" {
		t.Fatalf("derived key = %q", key)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 draft entries, got %d", len(out))
	}
	if out["ketua"].Nama != "Budi" {
		t.Fatal("existing entry was lost")
	}
	if out["wakil_ketua"].Nama != "" {
		t.Fatal("new position should start empty")
	}

	if _, _, err := svc.AddPosition(nil, "   "); !errors.Is(err, slug.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
}

func TestProgramRoundTrip(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(ms)
	ctx := context.Background()

	key, draft, err := svc.AddDivision(map[string]string{"dakwah": "Kajian rutin"}, "Media  Sosial")
	if err != nil {
		t.Fatal(err)
	}
	if key != "media_sosial" {
		t.Fatalf("derived key = %q", key)
	}

	if err := svc.SaveProgram(ctx, 2026, draft); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Program(ctx, 2026)
	if err != nil {
		t.Fatal(err)
	}
	if got["dakwah"] != "Kajian rutin" || got["media_sosial"] != "" {
		t.Fatalf("unexpected program map: %v", got)
	}
}

func TestSearchUnavailable(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.SearchActivities(context.Background(), "kajian")
	var derr *DomainError
	if !errors.As(err, &derr) || derr.Status != 503 {
		t.Fatalf("expected 503, got %v", err)
	}
}
