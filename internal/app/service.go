// Package app implements the site's operations on top of the data store:
// the news feed, comments, the windowed motivation quote, the org structure
// and work programs, and admin sessions.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"rohis/api/internal/archive"
	"rohis/api/internal/auth"
	"rohis/api/internal/authpw"
	"rohis/api/internal/config"
	"rohis/api/internal/feed"
	"rohis/api/internal/search"
	"rohis/api/internal/session"
	"rohis/api/internal/slug"
	"rohis/api/internal/store"
	"rohis/api/internal/util"
)

const (
	maxCommentLength     = 100
	defaultCommenterName = "Anonim"
	motivationKeyLayout  = "2006-01-02"
)

type dataStore interface {
	Snapshot(ctx context.Context, path string) (store.Collection, error)
	Put(ctx context.Context, path, key string, value any) error
	PutAll(ctx context.Context, path string, values store.Collection) error
	Append(ctx context.Context, path string, value any) (string, error)
	Delete(ctx context.Context, path, key string) error
	QueryByField(ctx context.Context, path, field, value string) (store.Collection, error)
	Subscribe(ctx context.Context, path string, fn func(store.Collection)) (func(), error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	Save(ctx context.Context, tokenHash string, identity session.Identity, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Identity, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type adminAuthenticator interface {
	SignIn(ctx context.Context, email, password string) (authpw.Admin, error)
	EnsureAdmin(ctx context.Context, email, password, name string) error
}

type searchService interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	Index(ctx context.Context, key string, activity store.Activity) error
	Remove(ctx context.Context, key string) error
}

type archiveService interface {
	Record(path string, snapshot store.Collection, message string) error
	History(path string, limit int) ([]archive.Change, error)
}

// Service wires the store, auth, and the optional collaborators together.
// search and archive may be nil; the operations that need them report
// unavailability instead.
type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	auth     adminAuthenticator
	search   searchService
	archive  archiveService
	now      func() time.Time

	watchMu sync.Mutex
	watcher *feed.Watcher[MotivationRecord]
}

func New(cfg config.Config, data *store.RedisStore, sessions *session.RedisStore, admins *authpw.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    data,
		sessions: sessions,
		auth:     admins,
		now:      time.Now,
	}
}

// UseSearch attaches a search backend.
func (s *Service) UseSearch(backend *search.Service) {
	if backend != nil {
		s.search = backend
	}
}

// UseArchive attaches a snapshot archive.
func (s *Service) UseArchive(backend *archive.Service) {
	if backend != nil {
		s.archive = backend
	}
}

// Bootstrap seeds the admin account from the environment, if configured.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		log.Println("app: no seed admin configured, dashboard login disabled until one exists")
		return nil
	}
	return s.auth.EnsureAdmin(ctx, s.cfg.AdminEmail, s.cfg.AdminPassword, s.cfg.AdminName)
}

// Ready reports whether the backing stores are reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("data store: %w", err)
	}
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// --- sessions ---

// Session is an authenticated dashboard session.
type Session struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	AdminID      string    `json:"adminId"`
	Name         string    `json:"name"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Login verifies admin credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	admin, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.openSession(ctx, session.Identity{AdminID: admin.ID, Name: admin.Name})
}

// Refresh rotates a refresh token into a new session. The presented token
// is revoked whether or not it was valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	identity, err := s.sessions.Lookup(ctx, hash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "refresh token is invalid or expired", nil)
	}
	if err := s.sessions.Revoke(ctx, hash); err != nil {
		return Session{}, fmt.Errorf("revoke old session: %w", err)
	}
	return s.openSession(ctx, identity)
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

// Authenticate parses and verifies an access token.
func (s *Service) Authenticate(token string) (auth.Claims, error) {
	return auth.ParseToken([]byte(s.cfg.TokenSecret), token, s.now())
}

func (s *Service) openSession(ctx context.Context, identity session.Identity) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  identity.AdminID,
		Name: identity.Name,
		JTI:  util.NewID("jti"),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), identity, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		AdminID:      identity.AdminID,
		Name:         identity.Name,
		ExpiresAt:    expiresAt,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// --- activities ---

// ActivityView is an activity with its collection key.
type ActivityView struct {
	Key string `json:"key"`
	store.Activity
}

// ActivityInput is the admin-supplied part of an activity.
type ActivityInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ListActivities returns the news feed, newest first.
func (s *Service) ListActivities(ctx context.Context) ([]ActivityView, error) {
	coll, err := s.store.Snapshot(ctx, store.ActivitiesPath)
	if err != nil {
		return nil, err
	}
	activities, err := store.Decode[store.Activity](coll)
	if err != nil {
		return nil, err
	}

	views := make([]ActivityView, 0, len(activities))
	for _, key := range feed.OrderedKeys(activities, store.Activity.UploadedAt, feed.ByDateDesc) {
		views = append(views, ActivityView{Key: key, Activity: activities[key]})
	}
	return views, nil
}

// GetActivity returns one activity by key.
func (s *Service) GetActivity(ctx context.Context, key string) (ActivityView, error) {
	coll, err := s.store.Snapshot(ctx, store.ActivitiesPath)
	if err != nil {
		return ActivityView{}, err
	}
	raw, ok := coll[key]
	if !ok {
		return ActivityView{}, domainError(http.StatusNotFound, "NOT_FOUND", "activity not found", nil)
	}
	activities, err := store.Decode[store.Activity](store.Collection{key: raw})
	if err != nil {
		return ActivityView{}, err
	}
	return ActivityView{Key: key, Activity: activities[key]}, nil
}

// CreateActivity publishes a new activity, stamped with the current instant.
func (s *Service) CreateActivity(ctx context.Context, in ActivityInput) (ActivityView, error) {
	if err := validateActivity(&in); err != nil {
		return ActivityView{}, err
	}
	activity := store.Activity{
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		Date:        s.now().Format(time.RFC3339),
	}
	key, err := s.store.Append(ctx, store.ActivitiesPath, activity)
	if err != nil {
		return ActivityView{}, err
	}
	s.indexActivity(ctx, key, activity)
	return ActivityView{Key: key, Activity: activity}, nil
}

// UpdateActivity edits an existing activity in place; the original
// publication date is kept.
func (s *Service) UpdateActivity(ctx context.Context, key string, in ActivityInput) (ActivityView, error) {
	if err := validateActivity(&in); err != nil {
		return ActivityView{}, err
	}
	current, err := s.GetActivity(ctx, key)
	if err != nil {
		return ActivityView{}, err
	}

	activity := store.Activity{
		Title:       in.Title,
		Description: in.Description,
		Image:       in.Image,
		Date:        current.Date,
	}
	if err := s.store.Put(ctx, store.ActivitiesPath, key, activity); err != nil {
		return ActivityView{}, err
	}
	s.indexActivity(ctx, key, activity)
	return ActivityView{Key: key, Activity: activity}, nil
}

// DeleteActivity removes an activity and cascades to its comments. The
// activity is removed first; comment deletions then run concurrently. When
// some comment deletions fail the activity stays gone and the failure lists
// the surviving comment keys, so the caller can retry just those.
func (s *Service) DeleteActivity(ctx context.Context, key string) error {
	coll, err := s.store.Snapshot(ctx, store.ActivitiesPath)
	if err != nil {
		return err
	}
	if _, ok := coll[key]; !ok {
		return domainError(http.StatusNotFound, "NOT_FOUND", "activity not found", nil)
	}

	if err := s.store.Delete(ctx, store.ActivitiesPath, key); err != nil {
		return fmt.Errorf("delete activity %s: %w", key, err)
	}
	s.removeActivityIndex(ctx, key)

	attached, err := s.store.QueryByField(ctx, store.CommentsPath, "activityId", key)
	if err != nil {
		return fmt.Errorf("find comments of %s: %w", key, err)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for commentKey := range attached {
		wg.Add(1)
		go func(ck string) {
			defer wg.Done()
			if err := s.store.Delete(ctx, store.CommentsPath, ck); err != nil {
				log.Printf("app: cascade delete comment %s: %v", ck, err)
				mu.Lock()
				failed = append(failed, ck)
				mu.Unlock()
			}
		}(commentKey)
	}
	wg.Wait()

	if len(failed) > 0 {
		sort.Strings(failed)
		return &PartialCascadeError{ActivityKey: key, Remaining: failed}
	}
	return nil
}

func validateActivity(in *ActivityInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing required fields", missing)
	}
	return nil
}

func (s *Service) indexActivity(ctx context.Context, key string, activity store.Activity) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, key, activity); err != nil {
		log.Printf("app: index activity %s: %v", key, err)
	}
}

func (s *Service) removeActivityIndex(ctx context.Context, key string) {
	if s.search == nil {
		return
	}
	if err := s.search.Remove(ctx, key); err != nil {
		log.Printf("app: unindex activity %s: %v", key, err)
	}
}

// SearchActivities queries the search backend.
func (s *Service) SearchActivities(ctx context.Context, query string) ([]search.Result, error) {
	if s.search == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "search is not configured", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []search.Result{}, nil
	}
	return s.search.Search(ctx, query)
}

// --- comments ---

// CommentView is a comment with its collection key.
type CommentView struct {
	Key string `json:"key"`
	store.Comment
}

// CommentInput is a visitor-submitted comment.
type CommentInput struct {
	Text       string `json:"text"`
	Name       string `json:"name"`
	ActivityID string `json:"activityId"`
}

// ListComments returns comments oldest first, or every comment when
// activityID is empty. Collections predating timestamps fall back to
// descending key order, which approximates newest first.
func (s *Service) ListComments(ctx context.Context, activityID string) ([]CommentView, error) {
	var (
		coll store.Collection
		err  error
	)
	if activityID == "" {
		coll, err = s.store.Snapshot(ctx, store.CommentsPath)
	} else {
		coll, err = s.store.QueryByField(ctx, store.CommentsPath, "activityId", activityID)
	}
	if err != nil {
		return nil, err
	}
	comments, err := store.Decode[store.Comment](coll)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for _, key := range orderComments(comments) {
		views = append(views, CommentView{Key: key, Comment: comments[key]})
	}
	return views, nil
}

func orderComments(comments map[string]store.Comment) []string {
	for _, c := range comments {
		if !c.UploadedAt().IsZero() {
			return feed.OrderedKeys(comments, store.Comment.UploadedAt, feed.ByUploadedAsc)
		}
	}
	return feed.OrderedKeys(comments, nil, feed.ByKeyDesc)
}

// AddComment stores a visitor comment. Blank names become "Anonim".
func (s *Service) AddComment(ctx context.Context, in CommentInput) (CommentView, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.Name = strings.TrimSpace(in.Name)
	if in.Text == "" {
		return CommentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "comment text is required", nil)
	}
	if len([]rune(in.Text)) > maxCommentLength {
		return CommentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("comment text exceeds %d characters", maxCommentLength), nil)
	}
	if in.Name == "" {
		in.Name = defaultCommenterName
	}

	comment := store.Comment{
		Text:       in.Text,
		Name:       in.Name,
		Date:       s.now().UnixMilli(),
		ActivityID: in.ActivityID,
	}
	key, err := s.store.Append(ctx, store.CommentsPath, comment)
	if err != nil {
		return CommentView{}, err
	}
	return CommentView{Key: key, Comment: comment}, nil
}

// LikeComment increments a comment's like counter and returns the new count.
// Likes only ever grow.
func (s *Service) LikeComment(ctx context.Context, key string) (int, error) {
	coll, err := s.store.Snapshot(ctx, store.CommentsPath)
	if err != nil {
		return 0, err
	}
	raw, ok := coll[key]
	if !ok {
		return 0, domainError(http.StatusNotFound, "NOT_FOUND", "comment not found", nil)
	}
	comments, err := store.Decode[store.Comment](store.Collection{key: raw})
	if err != nil {
		return 0, err
	}

	comment := comments[key]
	comment.Likes++
	if err := s.store.Put(ctx, store.CommentsPath, key, comment); err != nil {
		return 0, err
	}
	return comment.Likes, nil
}

// DeleteComment removes one comment.
func (s *Service) DeleteComment(ctx context.Context, key string) error {
	coll, err := s.store.Snapshot(ctx, store.CommentsPath)
	if err != nil {
		return err
	}
	if _, ok := coll[key]; !ok {
		return domainError(http.StatusNotFound, "NOT_FOUND", "comment not found", nil)
	}
	return s.store.Delete(ctx, store.CommentsPath, key)
}

// --- motivation ---

// MotivationRecord is a motivation with its resolved upload instant.
type MotivationRecord struct {
	store.Motivation
	at time.Time
}

func motivationAt(r MotivationRecord) time.Time { return r.at }

// MotivationInput is the admin-supplied part of a motivation quote.
type MotivationInput struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// PostMotivation stores a quote under today's date. The author is
// optional and stays empty when not given. Posting twice on one day
// overwrites the earlier quote; the archive keeps the overwritten one.
func (s *Service) PostMotivation(ctx context.Context, in MotivationInput) (string, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.Author = strings.TrimSpace(in.Author)
	if in.Text == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "motivation text is required", nil)
	}

	now := s.now()
	key := now.Format(motivationKeyLayout)
	record := store.Motivation{
		Text:       in.Text,
		Author:     in.Author,
		UploadedAt: now.Format(time.RFC3339),
	}
	if err := s.store.Put(ctx, store.MotivationPath, key, record); err != nil {
		return "", err
	}
	s.recordArchive(ctx, store.MotivationPath, "post motivation "+key)
	return key, nil
}

// ActiveMotivation returns the currently valid quote and its countdown.
// When the watcher is running its cached view is served; otherwise the
// view is evaluated from a fresh snapshot.
func (s *Service) ActiveMotivation(ctx context.Context) (feed.View[MotivationRecord], error) {
	s.watchMu.Lock()
	watcher := s.watcher
	s.watchMu.Unlock()
	if watcher != nil {
		return watcher.Current(), nil
	}

	coll, err := s.store.Snapshot(ctx, store.MotivationPath)
	if err != nil {
		return feed.View[MotivationRecord]{}, err
	}
	records, err := decodeMotivations(coll)
	if err != nil {
		return feed.View[MotivationRecord]{}, err
	}
	return evaluateMotivation(records, s.now(), s.cfg.MotivationWindow), nil
}

// StartMotivationWatcher subscribes to motivation changes and keeps the
// active view current against the wall clock. The returned stop function
// detaches the subscription and halts the ticker.
func (s *Service) StartMotivationWatcher(ctx context.Context) (func(), error) {
	watcher := feed.NewWatcher(motivationAt, s.cfg.MotivationWindow, nil)

	var revision uint64
	var revMu sync.Mutex
	cancelSub, err := s.store.Subscribe(ctx, store.MotivationPath, func(snap store.Collection) {
		records, err := decodeMotivations(snap)
		if err != nil {
			log.Printf("app: decode motivation snapshot: %v", err)
			return
		}
		revMu.Lock()
		revision++
		rev := revision
		revMu.Unlock()
		if err := watcher.UpdateAt(records, rev); err != nil {
			log.Printf("app: motivation snapshot %d dropped: %v", rev, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("watch motivation: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	go watcher.Run(runCtx)

	s.watchMu.Lock()
	s.watcher = watcher
	s.watchMu.Unlock()

	stop := func() {
		cancelRun()
		cancelSub()
		s.watchMu.Lock()
		s.watcher = nil
		s.watchMu.Unlock()
	}
	return stop, nil
}

func decodeMotivations(coll store.Collection) (map[string]MotivationRecord, error) {
	decoded, err := store.Decode[store.Motivation](coll)
	if err != nil {
		return nil, err
	}
	records := make(map[string]MotivationRecord, len(decoded))
	for key, m := range decoded {
		records[key] = MotivationRecord{Motivation: m, at: m.At(key)}
	}
	return records, nil
}

func evaluateMotivation(records map[string]MotivationRecord, now time.Time, window time.Duration) feed.View[MotivationRecord] {
	record, key, ok := feed.SelectActive(records, motivationAt, now, window)
	if !ok {
		return feed.View[MotivationRecord]{}
	}
	expiry := record.at.Add(window)
	return feed.View[MotivationRecord]{
		Active:    true,
		Key:       key,
		Record:    record,
		ExpiresAt: expiry,
		Remaining: feed.Remaining(expiry, now),
	}
}

// --- structure ---

// StructureView is one position of the org structure in display order.
type StructureView struct {
	Key        string `json:"key"`
	Nama       string `json:"nama"`
	UploadedAt int64  `json:"uploadedAt,omitempty"`
}

// Structure returns the org structure ordered by first assignment.
func (s *Service) Structure(ctx context.Context) ([]StructureView, error) {
	coll, err := s.store.Snapshot(ctx, store.StructurePath)
	if err != nil {
		return nil, err
	}
	entries, err := store.Decode[store.StructureEntry](coll)
	if err != nil {
		return nil, err
	}

	views := make([]StructureView, 0, len(entries))
	for _, key := range feed.OrderedKeys(entries, store.StructureEntry.At, feed.ByUploadedAsc) {
		entry := entries[key]
		views = append(views, StructureView{Key: key, Nama: entry.Nama, UploadedAt: entry.UploadedAt})
	}
	return views, nil
}

// SaveStructure replaces the whole structure map. Entries arriving without
// an upload instant are stamped now, so display order stays stable across
// saves.
func (s *Service) SaveStructure(ctx context.Context, entries map[string]store.StructureEntry) error {
	now := s.now().UnixMilli()
	for key, entry := range entries {
		if entry.UploadedAt == 0 {
			entry.UploadedAt = now
			entries[key] = entry
		}
	}

	coll, err := store.Encode(entries)
	if err != nil {
		return err
	}
	if err := s.store.PutAll(ctx, store.StructurePath, coll); err != nil {
		return err
	}
	s.recordArchive(ctx, store.StructurePath, "save structure")
	return nil
}

// AddPosition derives a key from label and inserts an empty position into
// the draft the admin is editing. Nothing is persisted until the draft is
// saved. A colliding key overwrites the existing draft entry.
func (s *Service) AddPosition(draft map[string]store.StructureEntry, label string) (string, map[string]store.StructureEntry, error) {
	entries := make(map[string]slug.Entry, len(draft))
	for key, entry := range draft {
		entries[key] = slug.Entry{Name: entry.Nama, UploadedAt: entry.At()}
	}

	working := slug.DraftOf(entries)
	key, err := working.Add(label)
	if err != nil {
		return "", nil, err
	}

	out := make(map[string]store.StructureEntry)
	for k, entry := range working.Entries() {
		stored := store.StructureEntry{Nama: entry.Name}
		if !entry.UploadedAt.IsZero() {
			stored.UploadedAt = entry.UploadedAt.UnixMilli()
		}
		out[k] = stored
	}
	return key, out, nil
}

// --- work programs ---

// Program returns one year's division map.
func (s *Service) Program(ctx context.Context, year int) (map[string]string, error) {
	coll, err := s.store.Snapshot(ctx, store.ProgramYearPath(year))
	if err != nil {
		return nil, err
	}
	return store.Decode[string](coll)
}

// SaveProgram replaces one year's division map.
func (s *Service) SaveProgram(ctx context.Context, year int, divisions map[string]string) error {
	coll, err := store.Encode(divisions)
	if err != nil {
		return err
	}
	path := store.ProgramYearPath(year)
	if err := s.store.PutAll(ctx, path, coll); err != nil {
		return err
	}
	s.recordArchive(ctx, path, fmt.Sprintf("save work program %d", year))
	return nil
}

// AddDivision derives a key from label and inserts an empty division into
// the draft. Same overwrite-on-collision behavior as AddPosition.
func (s *Service) AddDivision(draft map[string]string, label string) (string, map[string]string, error) {
	key, err := slug.Derive(label)
	if err != nil {
		return "", nil, err
	}
	out := make(map[string]string, len(draft)+1)
	for k, v := range draft {
		out[k] = v
	}
	out[key] = ""
	return key, out, nil
}

// --- archive ---

func (s *Service) recordArchive(ctx context.Context, path, message string) {
	if s.archive == nil {
		return
	}
	snap, err := s.store.Snapshot(ctx, path)
	if err != nil {
		log.Printf("app: archive snapshot of %s: %v", path, err)
		return
	}
	if err := s.archive.Record(path, snap, message); err != nil {
		log.Printf("app: archive %s: %v", path, err)
	}
}

// History returns the archived versions of an overwrite-prone collection,
// newest first.
func (s *Service) History(path string, limit int) ([]archive.Change, error) {
	if s.archive == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "history is not configured", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.archive.History(path, limit)
}
