package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"audiorating/internal/completion"
	"audiorating/internal/rating"
)

// EnsureParticipant registers uid with the study. Listed participants pass
// straight through; unlisted ones are added only when the study allows it.
func (s *Store) EnsureParticipant(ctx context.Context, study *Study, uid string) error {
	ctx = ensureContext(ctx)
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return fmt.Errorf("%w: uid is required", ErrInvalidSubmission)
	}
	if study == nil {
		return fmt.Errorf("study: %w", ErrNotFound)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return ensureParticipantTx(ctx, tx, study, uid, formatTime(s.now()))
	})
}

func ensureParticipantTx(ctx context.Context, tx *sql.Tx, study *Study, uid, now string) error {
	var linked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM study_participants WHERE study_id = ? AND participant_id = ?`,
		study.ID, uid,
	).Scan(&linked); err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if linked > 0 {
		return nil
	}
	if !study.AllowUnlistedParticipants {
		return fmt.Errorf("%w: %q is not listed for study %q", ErrParticipantNotAllowed, uid, study.NameShort)
	}
	return linkParticipant(ctx, tx, study.ID, uid, now)
}

// UpsertRatings stores one submission. Each dimension replaces any earlier
// rating by the same participant for the same song. The operation is
// OperationUpdated when any dimension was already stored.
func (s *Store) UpsertRatings(ctx context.Context, sub Submission) (Operation, error) {
	ctx = ensureContext(ctx)
	study, err := s.StudyConfig(ctx, sub.NameShort)
	if err != nil {
		return "", err
	}
	received := s.now()
	if !study.InCollectionWindow(received) {
		return "", fmt.Errorf("%w: study %q collects from %s to %s", ErrOutsideCollectionWindow,
			study.NameShort, formatTime(study.DataCollectionStart), formatTime(study.DataCollectionEnd))
	}
	if err := validateSubmission(study, sub); err != nil {
		return "", err
	}

	uid := strings.TrimSpace(sub.UID)
	timestamp := sub.Timestamp
	if timestamp.IsZero() {
		timestamp = received
	}
	now := formatTime(received)

	var op Operation
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		op = OperationCreated
		if err := ensureParticipantTx(ctx, tx, study, uid, now); err != nil {
			return err
		}
		var songID string
		if err := tx.QueryRowContext(ctx,
			`SELECT song_id FROM study_songs WHERE study_id = ? AND song_index = ?`,
			study.ID, sub.SongIndex,
		).Scan(&songID); err != nil {
			return fmt.Errorf("resolve song %d: %w", sub.SongIndex, err)
		}

		for _, title := range sub.Ratings.Titles() {
			payload, err := json.Marshal(sub.Ratings[title])
			if err != nil {
				return fmt.Errorf("encode segments for %s: %w", title, err)
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE ratings SET rating_segments = ?, timestamp = ?, updated_at = ?
                 WHERE participant_id = ? AND study_id = ? AND song_id = ? AND rating_name = ?`,
				string(payload), formatTime(timestamp), now, uid, study.ID, songID, title,
			)
			if err != nil {
				return fmt.Errorf("update rating %s: %w", title, err)
			}
			if affected, _ := res.RowsAffected(); affected > 0 {
				op = OperationUpdated
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ratings (
                    id, participant_id, study_id, song_id, rating_name,
                    rating_segments, timestamp, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), uid, study.ID, songID, title,
				string(payload), formatTime(timestamp), now, now,
			); err != nil {
				return fmt.Errorf("insert rating %s: %w", title, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return op, nil
}

func validateSubmission(study *Study, sub Submission) error {
	if strings.TrimSpace(sub.UID) == "" {
		return fmt.Errorf("%w: uid is required", ErrInvalidSubmission)
	}
	if sub.SongIndex < 0 || sub.SongIndex >= len(study.Songs) {
		return fmt.Errorf("%w: song_index %d out of range", ErrInvalidSubmission, sub.SongIndex)
	}
	if got := study.Songs[sub.SongIndex].MediaURL; got != sub.SongURL {
		return fmt.Errorf("%w: song_url %q does not match song %d (%q)", ErrInvalidSubmission, sub.SongURL, sub.SongIndex, got)
	}
	if len(sub.Ratings) == 0 {
		return fmt.Errorf("%w: ratings are empty", ErrInvalidSubmission)
	}
	catalog, err := study.Catalog()
	if err != nil {
		return fmt.Errorf("study dimensions: %w", err)
	}
	for title, segments := range sub.Ratings {
		dim, ok := catalog.Lookup(title)
		if !ok {
			return fmt.Errorf("%w: unknown dimension %q", ErrInvalidSubmission, title)
		}
		if len(segments) == 0 {
			return fmt.Errorf("%w: dimension %q has no segments", ErrInvalidSubmission, title)
		}
		// The server never learns the recording length, so the last end is
		// taken as the duration.
		if err := rating.ValidatePartition(segments, segments[len(segments)-1].End); err != nil {
			return fmt.Errorf("%w: dimension %q: %v", ErrInvalidSubmission, title, err)
		}
		for i, seg := range segments {
			if !dim.Contains(seg.Value) {
				return fmt.Errorf("%w: dimension %q segment %d value %d outside [%d, %d]",
					ErrInvalidSubmission, title, i, seg.Value, dim.MinValue, dim.MaxValue())
			}
		}
	}
	return nil
}

// RatingsForStudy returns every stored rating for a study ordered by
// participant, song and dimension.
func (s *Store) RatingsForStudy(ctx context.Context, nameShort string) ([]RatingRecord, error) {
	ctx = ensureContext(ctx)
	study, err := s.StudyConfig(ctx, nameShort)
	if err != nil {
		return nil, err
	}
	return s.queryRatings(ctx,
		`WHERE r.study_id = ? ORDER BY r.participant_id, ss.song_index, sd.dimension_order`,
		study.ID,
	)
}

func (s *Store) queryRatings(ctx context.Context, where string, args ...any) ([]RatingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.participant_id, ss.song_index, so.media_url, so.display_name,
            r.rating_name, r.rating_segments, r.timestamp, r.updated_at
        FROM ratings r
        JOIN songs so ON so.id = r.song_id
        JOIN study_songs ss ON ss.study_id = r.study_id AND ss.song_id = r.song_id
        LEFT JOIN study_dimensions sd ON sd.study_id = r.study_id AND sd.dimension_title = r.rating_name
        `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var records []RatingRecord
	for rows.Next() {
		var rec RatingRecord
		var payload, timestamp, updated string
		if err := rows.Scan(&rec.ParticipantID, &rec.SongIndex, &rec.MediaURL, &rec.DisplayName,
			&rec.Dimension, &payload, &timestamp, &updated); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Segments); err != nil {
			return nil, fmt.Errorf("decode segments for %s/%s: %w", rec.ParticipantID, rec.Dimension, err)
		}
		rec.Timestamp = mustTime(timestamp)
		rec.UpdatedAt = mustTime(updated)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Progress reports per-song completion for one participant. Songs without any
// stored rating are unvisited.
func (s *Store) Progress(ctx context.Context, nameShort, uid string) ([]SongProgress, error) {
	ctx = ensureContext(ctx)
	study, err := s.StudyConfig(ctx, nameShort)
	if err != nil {
		return nil, err
	}
	catalog, err := study.Catalog()
	if err != nil {
		return nil, fmt.Errorf("study dimensions: %w", err)
	}
	records, err := s.queryRatings(ctx,
		`WHERE r.study_id = ? AND r.participant_id = ? ORDER BY ss.song_index`,
		study.ID, strings.TrimSpace(uid),
	)
	if err != nil {
		return nil, err
	}

	bySong := make(map[int]rating.DimensionData, len(study.Songs))
	for _, rec := range records {
		data, ok := bySong[rec.SongIndex]
		if !ok {
			data = rating.DimensionData{}
			bySong[rec.SongIndex] = data
		}
		data[rec.Dimension] = rec.Segments
	}

	progress := make([]SongProgress, 0, len(study.Songs))
	for index, song := range study.Songs {
		entry := SongProgress{SongIndex: index, MediaURL: song.MediaURL, DisplayName: song.DisplayName}
		data, ok := bySong[index]
		if !ok {
			entry.Status = completion.StatusUnvisited
		} else {
			report := completion.CheckComplete(data, catalog)
			entry.Status = report.Status()
			entry.Missing = report.Missing
		}
		progress = append(progress, entry)
	}
	return progress, nil
}

// ParticipantExists reports whether uid has ever been registered.
func (s *Store) ParticipantExists(ctx context.Context, uid string) (bool, error) {
	ctx = ensureContext(ctx)
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM participants WHERE id = ?`, uid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup participant: %w", err)
	}
	return true, nil
}
