package store

import (
	"time"

	"audiorating/internal/completion"
	"audiorating/internal/rating"
	"audiorating/internal/studies"
)

// Study is a persisted study with its songs, dimensions and listed participants.
type Study struct {
	studies.Study
	ID        string
	CreatedAt time.Time
}

// StudySummary is the list view of a study.
type StudySummary struct {
	ID                  string
	Name                string
	NameShort           string
	SongCount           int
	DimensionCount      int
	ParticipantCount    int
	RatingCount         int
	DataCollectionStart time.Time
	DataCollectionEnd   time.Time
}

// Operation reports whether a submission created or updated ratings.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
)

// Submission carries one recording's ratings from a participant.
type Submission struct {
	UID       string               `json:"uid"`
	NameShort string               `json:"name_short"`
	SongIndex int                  `json:"song_index"`
	SongURL   string               `json:"song_url"`
	Ratings   rating.DimensionData `json:"ratings"`
	Timestamp time.Time            `json:"timestamp"`
}

// RatingRecord is one stored dimension rating, joined with song details.
type RatingRecord struct {
	ParticipantID string
	SongIndex     int
	MediaURL      string
	DisplayName   string
	Dimension     string
	Segments      []rating.Segment
	Timestamp     time.Time
	UpdatedAt     time.Time
}

// SongProgress is a participant's completion state for one song.
type SongProgress struct {
	SongIndex   int               `json:"song_index"`
	MediaURL    string            `json:"media_url"`
	DisplayName string            `json:"display_name"`
	Status      completion.Status `json:"status"`
	Missing     []string          `json:"missing,omitempty"`
}
