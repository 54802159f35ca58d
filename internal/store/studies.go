package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"audiorating/internal/rating"
	"audiorating/internal/studies"
)

// SyncStudies creates every configured study that does not yet exist. Studies
// already in the database are left untouched so edits to the file never
// rewrite collected data. It returns the short names that were created.
func (s *Store) SyncStudies(ctx context.Context, cfg *studies.Config) ([]string, error) {
	if cfg == nil {
		return nil, nil
	}
	var created []string
	for _, study := range cfg.Studies {
		var inserted bool
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM studies WHERE name_short = ?`, study.NameShort).Scan(&exists); err != nil {
				return fmt.Errorf("check study %s: %w", study.NameShort, err)
			}
			if exists > 0 {
				inserted = false
				return nil
			}
			if err := s.insertStudy(ctx, tx, study); err != nil {
				return err
			}
			inserted = true
			return nil
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created = append(created, study.NameShort)
		}
	}
	return created, nil
}

func (s *Store) insertStudy(ctx context.Context, tx *sql.Tx, study studies.Study) error {
	now := formatTime(s.now())
	studyID := uuid.NewString()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO studies (
            id, name, name_short, description, allow_unlisted_participants,
            data_collection_start, data_collection_end, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		studyID,
		study.Name,
		study.NameShort,
		nullableString(study.Description),
		boolToInt(study.AllowUnlistedParticipants),
		formatTime(study.DataCollectionStart),
		formatTime(study.DataCollectionEnd),
		now,
	); err != nil {
		return fmt.Errorf("insert study %s: %w", study.NameShort, err)
	}

	for _, participantID := range study.ParticipantIDs {
		if err := linkParticipant(ctx, tx, studyID, participantID, now); err != nil {
			return err
		}
	}

	for index, song := range study.Songs {
		songID, err := ensureSong(ctx, tx, song)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO study_songs (study_id, song_id, song_index) VALUES (?, ?, ?)`,
			studyID, songID, index,
		); err != nil {
			return fmt.Errorf("link song %s: %w", song.MediaURL, err)
		}
	}

	for order, spec := range study.RatingDimensions {
		dim, err := rating.NormalizeDimension(spec)
		if err != nil {
			return fmt.Errorf("dimension %q: %w", spec.Title, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO study_dimensions (
                study_id, dimension_title, dimension_order, num_values,
                minimal_value, default_value, description
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			studyID, dim.Title, order, dim.NumValues, dim.MinValue, dim.DefaultValue, nullableString(dim.Description),
		); err != nil {
			return fmt.Errorf("insert dimension %s: %w", dim.Title, err)
		}
	}
	return nil
}

// ensureSong reuses an existing song row with the same media URL.
func ensureSong(ctx context.Context, tx *sql.Tx, song studies.Song) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM songs WHERE media_url = ?`, song.MediaURL).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup song %s: %w", song.MediaURL, err)
	}
	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO songs (id, media_url, display_name, description) VALUES (?, ?, ?, ?)`,
		id, song.MediaURL, song.DisplayName, nullableString(song.Description),
	); err != nil {
		return "", fmt.Errorf("insert song %s: %w", song.MediaURL, err)
	}
	return id, nil
}

func linkParticipant(ctx context.Context, tx *sql.Tx, studyID, participantID, now string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO participants (id, created_at) VALUES (?, ?)`,
		participantID, now,
	); err != nil {
		return fmt.Errorf("insert participant %s: %w", participantID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO study_participants (study_id, participant_id) VALUES (?, ?)`,
		studyID, participantID,
	); err != nil {
		return fmt.Errorf("link participant %s: %w", participantID, err)
	}
	return nil
}

// ListStudies returns every study with aggregate counts, ordered by short name.
func (s *Store) ListStudies(ctx context.Context) ([]StudySummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.name, s.name_short, s.data_collection_start, s.data_collection_end,
            (SELECT COUNT(1) FROM study_songs ss WHERE ss.study_id = s.id),
            (SELECT COUNT(1) FROM study_dimensions sd WHERE sd.study_id = s.id),
            (SELECT COUNT(1) FROM study_participants sp WHERE sp.study_id = s.id),
            (SELECT COUNT(1) FROM ratings r WHERE r.study_id = s.id)
        FROM studies s
        ORDER BY s.name_short`)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	var summaries []StudySummary
	for rows.Next() {
		var (
			summary    StudySummary
			start, end string
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.NameShort,
			&start,
			&end,
			&summary.SongCount,
			&summary.DimensionCount,
			&summary.ParticipantCount,
			&summary.RatingCount,
		); err != nil {
			return nil, fmt.Errorf("scan study summary: %w", err)
		}
		summary.DataCollectionStart = mustTime(start)
		summary.DataCollectionEnd = mustTime(end)
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// StudyConfig loads a study with its songs (in song_index order), dimensions
// (in dimension_order) and listed participants. Unknown names yield ErrNotFound.
func (s *Store) StudyConfig(ctx context.Context, nameShort string) (*Study, error) {
	ctx = ensureContext(ctx)
	var (
		study       Study
		description sql.NullString
		allow       int
		start, end  string
		createdRaw  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, name_short, description, allow_unlisted_participants,
            data_collection_start, data_collection_end, created_at
         FROM studies WHERE name_short = ?`, nameShort,
	).Scan(&study.ID, &study.Name, &study.NameShort, &description, &allow, &start, &end, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study %q: %w", nameShort, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get study: %w", err)
	}
	study.Description = description.String
	study.AllowUnlistedParticipants = allow != 0
	study.DataCollectionStart = mustTime(start)
	study.DataCollectionEnd = mustTime(end)
	study.CreatedAt = mustTime(createdRaw)

	if study.Songs, err = s.studySongs(ctx, study.ID); err != nil {
		return nil, err
	}
	if study.RatingDimensions, err = s.studyDimensions(ctx, study.ID); err != nil {
		return nil, err
	}
	if study.ParticipantIDs, err = s.studyParticipants(ctx, study.ID); err != nil {
		return nil, err
	}
	return &study, nil
}

func (s *Store) studySongs(ctx context.Context, studyID string) ([]studies.Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT so.media_url, so.display_name, so.description
         FROM study_songs ss JOIN songs so ON so.id = ss.song_id
         WHERE ss.study_id = ? ORDER BY ss.song_index`, studyID)
	if err != nil {
		return nil, fmt.Errorf("query study songs: %w", err)
	}
	defer rows.Close()

	var songs []studies.Song
	for rows.Next() {
		var (
			song        studies.Song
			description sql.NullString
		)
		if err := rows.Scan(&song.MediaURL, &song.DisplayName, &description); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		song.Description = description.String
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func (s *Store) studyDimensions(ctx context.Context, studyID string) ([]rating.DimensionSpec, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension_title, num_values, minimal_value, default_value, description
         FROM study_dimensions WHERE study_id = ? ORDER BY dimension_order`, studyID)
	if err != nil {
		return nil, fmt.Errorf("query study dimensions: %w", err)
	}
	defer rows.Close()

	var specs []rating.DimensionSpec
	for rows.Next() {
		var (
			dim         rating.Dimension
			description sql.NullString
		)
		if err := rows.Scan(&dim.Title, &dim.NumValues, &dim.MinValue, &dim.DefaultValue, &description); err != nil {
			return nil, fmt.Errorf("scan dimension: %w", err)
		}
		dim.Description = description.String
		if dim.Description == "" {
			dim.Description = dim.Title
		}
		specs = append(specs, dim.Spec())
	}
	return specs, rows.Err()
}

func (s *Store) studyParticipants(ctx context.Context, studyID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id FROM study_participants WHERE study_id = ? ORDER BY participant_id`, studyID)
	if err != nil {
		return nil, fmt.Errorf("query study participants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
