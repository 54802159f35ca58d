// Package localstore keeps a participant's in-progress ratings on disk so a
// session survives restarts and backend outages.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"audiorating/internal/fileutil"
	"audiorating/internal/rating"
	"audiorating/internal/textutil"
)

// ErrLocked is returned when another process holds the participant's file.
var ErrLocked = errors.New("local ratings are in use by another session")

// Recording is the locally persisted state of one song.
type Recording struct {
	Ratings   rating.DimensionData `json:"ratings"`
	Submitted bool                 `json:"submitted"`
	Operation string               `json:"operation,omitempty"`
	SavedAt   time.Time            `json:"saved_at"`
}

// State is the full file contents for one study and participant.
type State struct {
	NameShort  string               `json:"name_short"`
	UID        string               `json:"uid"`
	Current    int                  `json:"current"`
	Recordings map[string]Recording `json:"recordings"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Store persists one State under <dir>/<study>/<participant>.json. The file
// is guarded by a flock held for the lifetime of the Store.
type Store struct {
	path string
	lock *flock.Flock
	now  func() time.Time

	mu    sync.Mutex
	state State
}

// Open loads or creates the participant's state file and locks it.
func Open(dir, nameShort, uid string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("local ratings directory is not configured")
	}
	if strings.TrimSpace(nameShort) == "" || strings.TrimSpace(uid) == "" {
		return nil, errors.New("study and participant are required")
	}
	studyDir := filepath.Join(dir, textutil.FileToken(nameShort))
	if err := os.MkdirAll(studyDir, 0o755); err != nil {
		return nil, fmt.Errorf("create local ratings directory: %w", err)
	}
	path := filepath.Join(studyDir, textutil.FileToken(uid)+".json")

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock local ratings: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	s := &Store{path: path, lock: lock, now: time.Now}
	state, err := readState(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if state.NameShort != "" && (state.NameShort != nameShort || state.UID != uid) {
		_ = lock.Unlock()
		return nil, fmt.Errorf("local ratings at %s belong to %s/%s", path, state.NameShort, state.UID)
	}
	state.NameShort = nameShort
	state.UID = uid
	if state.Recordings == nil {
		state.Recordings = make(map[string]Recording)
	}
	s.state = state
	return s, nil
}

func readState(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read local ratings: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode local ratings %s: %w", path, err)
	}
	return state, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Close releases the file lock.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Current returns the persisted recording index.
func (s *Store) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current
}

// SetCurrent persists the recording index.
func (s *Store) SetCurrent(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Current = index
	return s.flushLocked()
}

// Recording returns a copy of the stored state for mediaURL.
func (s *Store) Recording(mediaURL string) (Recording, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Recordings[mediaURL]
	if !ok {
		return Recording{}, false
	}
	rec.Ratings = rec.Ratings.Clone()
	return rec, true
}

// PutRatings stores ratings for mediaURL and marks them as not yet submitted
// when they differ from what was stored.
func (s *Store) PutRatings(mediaURL string, data rating.DimensionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.state.Recordings[mediaURL]
	if rec.Ratings == nil || !rec.Ratings.Equal(data) {
		rec.Submitted = false
		rec.Operation = ""
	}
	rec.Ratings = data.Clone()
	rec.SavedAt = s.now().UTC()
	s.state.Recordings[mediaURL] = rec
	return s.flushLocked()
}

// MarkSubmitted records a successful remote submission.
func (s *Store) MarkSubmitted(mediaURL, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Recordings[mediaURL]
	if !ok {
		return fmt.Errorf("no local ratings for %q", mediaURL)
	}
	rec.Submitted = true
	rec.Operation = operation
	s.state.Recordings[mediaURL] = rec
	return s.flushLocked()
}

// Pending lists media URLs whose ratings have not reached the backend.
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for url, rec := range s.state.Recordings {
		if !rec.Submitted {
			out = append(out, url)
		}
	}
	return out
}

func (s *Store) flushLocked() error {
	s.state.UpdatedAt = s.now().UTC()
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local ratings: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write local ratings: %w", err)
	}
	return nil
}
