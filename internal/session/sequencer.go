package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"audiorating/internal/api"
	"audiorating/internal/completion"
	"audiorating/internal/localstore"
	"audiorating/internal/logging"
	"audiorating/internal/rating"
)

// ErrOutOfRange is returned when navigation leaves the study's song list.
var ErrOutOfRange = errors.New("recording index out of range")

// Rater is the rating surface the sequencer drives; *widget.Widget
// satisfies it.
type Rater interface {
	LoadRecording(ctx context.Context, source string, data rating.DimensionData) error
	Data() rating.DimensionData
}

// Submitter sends ratings to the backend; *Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, sub api.RatingSubmission) (string, error)
}

// Options configures a Sequencer.
type Options struct {
	Study api.StudyResponse
	UID   string
	Rater Rater
	Local *localstore.Store
	// Remote may be nil, in which case saves stay local and report
	// ErrBackendOffline.
	Remote Submitter
	Logger *slog.Logger
	Now    func() time.Time
}

// Sequencer walks a participant through a study's recordings, restoring and
// persisting ratings as it moves.
type Sequencer struct {
	study   api.StudyResponse
	uid     string
	catalog *rating.Catalog
	rater   Rater
	local   *localstore.Store
	remote  Submitter
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	current int
}

// NewSequencer validates opts and loads the recording the participant was
// last working on.
func NewSequencer(ctx context.Context, opts Options) (*Sequencer, error) {
	if len(opts.Study.SongsToRate) == 0 {
		return nil, fmt.Errorf("study %q has no songs to rate", opts.Study.NameShort)
	}
	if strings.TrimSpace(opts.UID) == "" {
		return nil, errors.New("participant id is required")
	}
	if opts.Rater == nil || opts.Local == nil {
		return nil, errors.New("sequencer requires a rater and a local store")
	}
	catalog, err := rating.NewCatalogFromSpecs(opts.Study.RatingDimensions)
	if err != nil {
		return nil, fmt.Errorf("study %q dimensions: %w", opts.Study.NameShort, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Sequencer{
		study:   opts.Study,
		uid:     strings.TrimSpace(opts.UID),
		catalog: catalog,
		rater:   opts.Rater,
		local:   opts.Local,
		remote:  opts.Remote,
		logger: logging.NewComponentLogger(logger, "session").With(
			logging.Study(opts.Study.NameShort),
			logging.Participant(opts.UID),
		),
		now: now,
	}

	start := opts.Local.Current()
	if start < 0 || start >= len(opts.Study.SongsToRate) {
		start = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx, start); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of recordings in the study.
func (s *Sequencer) Len() int {
	return len(s.study.SongsToRate)
}

// Current returns the active recording.
func (s *Sequencer) Current() (int, api.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.study.SongsToRate[s.current]
}

// Next moves to the following recording.
func (s *Sequencer) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(ctx, s.current+1)
}

// Previous moves to the preceding recording.
func (s *Sequencer) Previous(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(ctx, s.current-1)
}

// Goto moves to recording index. The current ratings are stored locally
// first.
func (s *Sequencer) Goto(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(ctx, index)
}

func (s *Sequencer) gotoLocked(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.study.SongsToRate) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(s.study.SongsToRate))
	}
	if index == s.current {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	return s.loadLocked(ctx, index)
}

func (s *Sequencer) loadLocked(ctx context.Context, index int) error {
	song := s.study.SongsToRate[index]
	var restored rating.DimensionData
	if rec, ok := s.local.Recording(song.MediaURL); ok {
		restored = rec.Ratings
	}
	if err := s.rater.LoadRecording(ctx, song.MediaURL, restored); err != nil {
		return fmt.Errorf("load %s: %w", song.MediaURL, err)
	}
	s.current = index
	if err := s.local.SetCurrent(index); err != nil {
		return err
	}
	s.logger.Debug("recording loaded",
		logging.Int("song_index", index),
		logging.String(logging.FieldRecording, song.MediaURL),
		logging.Bool("restored", restored != nil),
	)
	return nil
}

func (s *Sequencer) persistLocked() error {
	data := s.rater.Data()
	if data == nil {
		return errors.New("rater has no data")
	}
	song := s.study.SongsToRate[s.current]
	return s.local.PutRatings(song.MediaURL, data)
}

// Save stores the current ratings locally and submits them. When the backend
// cannot be reached the error wraps ErrBackendOffline and the local copy is
// kept for a later SyncPending.
func (s *Sequencer) Save(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	return s.submitLocked(ctx, s.current)
}

func (s *Sequencer) submitLocked(ctx context.Context, index int) (string, error) {
	song := s.study.SongsToRate[index]
	if s.remote == nil {
		return "", fmt.Errorf("%w: no backend configured", ErrBackendOffline)
	}
	rec, ok := s.local.Recording(song.MediaURL)
	if !ok {
		return "", fmt.Errorf("no local ratings for %s", song.MediaURL)
	}
	sub := api.RatingSubmission{
		UID:       s.uid,
		NameShort: s.study.NameShort,
		SongIndex: index,
		SongURL:   song.MediaURL,
		Ratings:   rec.Ratings,
		Timestamp: s.now().UTC(),
	}
	op, err := s.remote.Submit(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrBackendOffline) {
			logging.WarnWithContext(s.logger, "backend offline, ratings kept locally", "backend_offline",
				logging.String(logging.FieldRecording, song.MediaURL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "ratings will be resent on the next sync"),
			)
		}
		return "", err
	}
	if err := s.local.MarkSubmitted(song.MediaURL, op); err != nil {
		return op, err
	}
	s.logger.Info("ratings submitted",
		logging.Int("song_index", index),
		logging.String(logging.FieldRecording, song.MediaURL),
		logging.String("operation", op),
	)
	return op, nil
}

// SyncPending resubmits every locally stored recording that has not reached
// the backend, returning how many were sent. It stops at the first offline
// error.
func (s *Sequencer) SyncPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make(map[string]bool)
	for _, url := range s.local.Pending() {
		pending[url] = true
	}
	sent := 0
	for i, song := range s.study.SongsToRate {
		if !pending[song.MediaURL] {
			continue
		}
		if _, err := s.submitLocked(ctx, i); err != nil {
			if errors.Is(err, ErrBackendOffline) {
				return sent, err
			}
			return sent, fmt.Errorf("resubmit %s: %w", song.MediaURL, err)
		}
		sent++
	}
	return sent, nil
}

// Status reports completion per recording in study order. The active
// recording is judged on the rater's live data.
func (s *Sequencer) Status() []completion.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]completion.Status, len(s.study.SongsToRate))
	for i, song := range s.study.SongsToRate {
		var data rating.DimensionData
		if i == s.current {
			data = s.rater.Data()
		} else if rec, ok := s.local.Recording(song.MediaURL); ok {
			data = rec.Ratings
		}
		if data == nil {
			out[i] = completion.StatusUnvisited
			continue
		}
		out[i] = completion.CheckComplete(data, s.catalog).Status()
	}
	return out
}

// CanFinish reports whether every recording is complete.
func (s *Sequencer) CanFinish() bool {
	for _, status := range s.Status() {
		if status != completion.StatusComplete {
			return false
		}
	}
	return true
}
