// SPDX-License-Identifier: MPL-2.0

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultMaxEntries bounds the history file when no limit is configured.
const DefaultMaxEntries = 1000

// FileName is the history file name inside the cmdrun config directory.
const FileName = "history.json"

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("history entry not found")

type (
	// Store is a JSON file of entries, newest first. It is safe for
	// concurrent use within one process.
	Store struct {
		path       string
		maxEntries int
		mu         sync.Mutex
	}

	// Stats summarizes the stored entries.
	Stats struct {
		Total       int
		Successful  int
		Failed      int
		AvgDuration time.Duration
	}

	fileFormat struct {
		Entries []Entry `json:"entries"`
	}
)

// NewStore returns a store backed by path. maxEntries <= 0 means
// DefaultMaxEntries. The file is created on first write.
func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{path: path, maxEntries: maxEntries}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Add stores e, assigning an ID when it has none, and drops the oldest
// entries beyond the limit. It returns the stored entry's ID.
func (s *Store) Add(e Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}

	entries = append(entries, e)
	slices.SortStableFunc(entries, newestFirst)
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	if err := s.save(entries); err != nil {
		return "", err
	}
	return e.ID, nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return truncate(entries, limit), nil
}

// Search returns up to limit entries whose command, arguments or launched
// lines contain query, ignoring case.
func (s *Store) Search(query string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	var found []Entry
	for _, e := range entries {
		if e.matches(query) {
			found = append(found, e)
		}
	}
	return truncate(found, limit), nil
}

// Last returns the newest entry, or ErrNotFound.
func (s *Store) Last() (Entry, error) {
	return s.first(func(Entry) bool { return true })
}

// LastFailed returns the newest unsuccessful entry, or ErrNotFound.
func (s *Store) LastFailed() (Entry, error) {
	return s.first(func(e Entry) bool { return !e.Success })
}

// Get returns the entry with id, or ErrNotFound.
func (s *Store) Get(id string) (Entry, error) {
	return s.first(func(e Entry) bool { return e.ID == id })
}

func (s *Store) first(match func(Entry) bool) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if match(e) {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Stats summarizes every stored entry.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	var total time.Duration
	for _, e := range entries {
		st.Total++
		if e.Success {
			st.Successful++
		} else {
			st.Failed++
		}
		total += e.Duration
	}
	if st.Total > 0 {
		st.AvgDuration = total / time.Duration(st.Total)
	}
	return st, nil
}

// SuccessRate is the share of successful runs in percent.
func (st Stats) SuccessRate() float64 {
	if st.Total == 0 {
		return 0
	}
	return float64(st.Successful) * 100 / float64(st.Total)
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}
	if err := s.save(nil); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}
	return f.Entries, nil
}

// save writes entries through a temp file and rename so readers never see
// a partial file.
func (s *Store) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(fileFormat{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

func newestFirst(a, b Entry) int {
	if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func truncate(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
