// Package archive keeps a git history of the overwrite-prone collections.
// Same-day motivation posts and whole-map structure or program saves
// replace data silently in the store; every write is committed here so an
// admin can recover what a save clobbered.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"rohis/api/internal/store"
)

const snapshotFile = "snapshot.json"

// Change is one archived version of a collection.
type Change struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Service holds one git repository per collection path.
type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Record commits the current snapshot of a collection. A write that did
// not change the collection is skipped silently.
func (s *Service) Record(path string, snapshot store.Collection, message string) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(path)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	// Collection marshals with sorted keys, so identical snapshots
	// produce identical bytes and empty commits are detectable.
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	target := filepath.Join(worktree.Filesystem.Root(), snapshotFile)
	if err := os.WriteFile(target, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return fmt.Errorf("git add snapshot: %w", err)
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "rohis-api",
			Email: "api@rohis.local",
			When:  s.now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// History returns the archived versions of a collection, newest first. A
// collection that was never archived has an empty history.
func (s *Service) History(path string, limit int) ([]Change, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(path))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Change{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open archive for %s: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Change{}, nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read archive log: %w", err)
	}
	defer iter.Close()

	changes := make([]Change, 0, limit)
	err = iter.ForEach(func(commit *object.Commit) error {
		changes = append(changes, Change{
			Hash:    commit.Hash.String()[:7],
			Message: commit.Message,
			When:    commit.Author.When,
		})
		if limit > 0 && len(changes) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate archive log: %w", err)
	}
	return changes, nil
}

// GetSnapshot reads the collection as it was at one archived version.
func (s *Service) GetSnapshot(path, hash string) (store.Collection, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(path))
	if err != nil {
		return nil, fmt.Errorf("open archive for %s: %w", path, err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commit.File(snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("load snapshot from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read snapshot bytes: %w", err)
	}
	var snapshot store.Collection
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Service) openOrInit(path string) (*git.Repository, error) {
	dir := s.repoPath(path)
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open archive for %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init archive for %s: %w", path, err)
	}
	return repo, nil
}

// repoPath maps a collection path to a directory; nested paths like the
// per-year program collections flatten with double underscores.
func (s *Service) repoPath(path string) string {
	return filepath.Join(s.baseDir, strings.ReplaceAll(path, "/", "__"))
}

func (s *Service) pathLock(path string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
