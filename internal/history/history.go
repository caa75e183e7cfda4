// internal/history/history.go
package history

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"codebundle/internal/errors"
	"codebundle/internal/storage"
	"codebundle/shared/types"
	"codebundle/shared/utils"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const runPrefix = "run"

// RecordSummary fingerprints one archived or restored file
type RecordSummary struct {
	Path     string `json:"path" yaml:"path"`
	Size     int    `json:"size" yaml:"size"`
	Checksum string `json:"checksum" yaml:"checksum"`
}

// Run is one bundler invocation
type Run struct {
	ID        string          `json:"id" yaml:"id"`
	Action    string          `json:"action" yaml:"action"`
	Source    string          `json:"source" yaml:"source"`
	Output    string          `json:"output" yaml:"output"`
	Records   []RecordSummary `json:"records" yaml:"records"`
	Skipped   []string        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Digest    string          `json:"digest,omitempty" yaml:"digest,omitempty"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *Run) GetID() string {
	return r.ID
}

// NewRun starts a run record with a fresh id
func NewRun(action, source, output string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Action:    action,
		Source:    source,
		Output:    output,
		Records:   []RecordSummary{},
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the duration and failure, if any
func (r *Run) Finish(err error) {
	r.Duration = time.Since(r.StartedAt)
	if err != nil {
		r.Error = err.Error()
	}
}

// Summarize fingerprints records and digests the archive text they form
func Summarize(records shared.Archive, text string) ([]RecordSummary, string) {
	summaries := make([]RecordSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, RecordSummary{
			Path:     r.Path,
			Size:     len(r.Content),
			Checksum: utils.Checksum(r.Content),
		})
	}
	return summaries, utils.HashContent([]byte(text))
}

// Store keeps runs in badger with an LRU cache in front
type Store struct {
	db    *badger.DB
	store *storage.BadgerStore
	cache *lru.Cache[string, *Run]
	mu    sync.RWMutex
	owned bool
}

// Options configures Store behavior
type Options struct {
	Path      string // Database directory, "" for in-memory
	CacheSize int    // Number of runs to cache
}

// Open opens (or creates) the database and wraps it
func Open(opts Options) (*Store, error) {
	db, err := storage.Open(opts.Path)
	if err != nil {
		return nil, err
	}

	s, err := New(db, opts.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an already open database
func New(db *badger.DB, cacheSize int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}

	cache, err := lru.New[string, *Run](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Store{
		db:    db,
		store: storage.NewBadgerStore(db, runPrefix),
		cache: cache,
	}, nil
}

// Close closes the database if Open created it
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Record saves a run
func (s *Store) Record(run *Run) error {
	if run == nil || run.ID == "" {
		return errors.ValidationError("run id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Put(run); err != nil {
		return fmt.Errorf("storing run: %w", err)
	}
	s.cache.Add(run.ID, run)
	return nil
}

// Get returns a run by id, from cache when possible
func (s *Store) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, ok := s.cache.Get(id); ok {
		return run, nil
	}

	var run Run
	if err := s.store.Get(id, &run); err != nil {
		return nil, err
	}
	s.cache.Add(id, &run)
	return &run, nil
}

// List returns every run, newest first
func (s *Store) List() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0)
	if err := s.store.List(&runs); err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// Prune keeps the newest keep runs and deletes the rest
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, errors.ValidationError("keep must not be negative", keep)
	}

	runs, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(runs) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, run := range runs[keep:] {
		if err := s.store.Delete(run.ID); err != nil {
			return removed, fmt.Errorf("deleting run %s: %w", run.ID, err)
		}
		s.cache.Remove(run.ID)
		removed++
	}
	return removed, nil
}
