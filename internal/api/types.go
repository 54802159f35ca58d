package api

import (
	"time"

	"audiorating/internal/completion"
	"audiorating/internal/rating"
)

// OperationHeader carries "created" or "updated" on submission responses.
const OperationHeader = "X-Operation"

// RequestIDHeader echoes the correlation identifier assigned to a request.
const RequestIDHeader = "X-Request-ID"

// HealthResponse is returned by the API root.
type HealthResponse struct {
	Message string `json:"message"`
}

// Song describes one recording of a study.
type Song struct {
	MediaURL    string `json:"media_url"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// StudyResponse is the participant-facing study definition.
type StudyResponse struct {
	ID                        string                 `json:"id"`
	Name                      string                 `json:"name"`
	NameShort                 string                 `json:"name_short"`
	Description               string                 `json:"description,omitempty"`
	AllowUnlistedParticipants bool                   `json:"allow_unlisted_participants"`
	SongsToRate               []Song                 `json:"songs_to_rate"`
	RatingDimensions          []rating.DimensionSpec `json:"rating_dimensions"`
	DataCollectionStart       time.Time              `json:"data_collection_start"`
	DataCollectionEnd         time.Time              `json:"data_collection_end"`
}

// StudySummary is one row of the study list.
type StudySummary struct {
	Name                string    `json:"name"`
	NameShort           string    `json:"name_short"`
	SongCount           int       `json:"song_count"`
	DimensionCount      int       `json:"dimension_count"`
	ParticipantCount    int       `json:"participant_count"`
	RatingCount         int       `json:"rating_count"`
	DataCollectionStart time.Time `json:"data_collection_start"`
	DataCollectionEnd   time.Time `json:"data_collection_end"`
}

// StudyListResponse wraps the study list.
type StudyListResponse struct {
	Studies []StudySummary `json:"studies"`
}

// RatingSubmission carries one recording's ratings from a participant.
type RatingSubmission struct {
	UID       string               `json:"uid"`
	NameShort string               `json:"name_short"`
	SongIndex int                  `json:"song_index"`
	SongURL   string               `json:"song_url"`
	Ratings   rating.DimensionData `json:"ratings"`
	Timestamp time.Time            `json:"timestamp"`
}

// SubmitResponse acknowledges a stored submission.
type SubmitResponse struct {
	Operation string `json:"operation"`
}

// SongProgress is a participant's completion state for one song.
type SongProgress struct {
	SongIndex   int               `json:"song_index"`
	MediaURL    string            `json:"media_url"`
	DisplayName string            `json:"display_name"`
	Status      completion.Status `json:"status"`
	Missing     []string          `json:"missing,omitempty"`
}

// ProgressResponse lists per-song completion in song order.
type ProgressResponse struct {
	NameShort string         `json:"name_short"`
	UID       string         `json:"uid"`
	Songs     []SongProgress `json:"songs"`
	CanFinish bool           `json:"can_finish"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Detail  string `json:"detail"`
	ErrorID string `json:"error_id"`
	Message string `json:"message"`
}
