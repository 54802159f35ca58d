package api

import (
	"time"

	"audiorating/internal/completion"
	"audiorating/internal/rating"
	"audiorating/internal/store"
	"audiorating/internal/studies"
)

// FromStudy converts a stored study into its wire form.
func FromStudy(study *store.Study) StudyResponse {
	if study == nil {
		return StudyResponse{}
	}
	songs := make([]Song, 0, len(study.Songs))
	for _, song := range study.Songs {
		songs = append(songs, Song(song))
	}
	return StudyResponse{
		ID:                        study.ID,
		Name:                      study.Name,
		NameShort:                 study.NameShort,
		Description:               study.Description,
		AllowUnlistedParticipants: study.AllowUnlistedParticipants,
		SongsToRate:               songs,
		RatingDimensions:          study.RatingDimensions,
		DataCollectionStart:       study.DataCollectionStart.UTC(),
		DataCollectionEnd:         study.DataCollectionEnd.UTC(),
	}
}

// ToStudy converts a wire study back into the configuration shape used by
// clients to build catalogs.
func (r StudyResponse) ToStudy() studies.Study {
	songs := make([]studies.Song, 0, len(r.SongsToRate))
	for _, song := range r.SongsToRate {
		songs = append(songs, studies.Song(song))
	}
	return studies.Study{
		Name:                      r.Name,
		NameShort:                 r.NameShort,
		Description:               r.Description,
		Songs:                     songs,
		RatingDimensions:          r.RatingDimensions,
		AllowUnlistedParticipants: r.AllowUnlistedParticipants,
		DataCollectionStart:       r.DataCollectionStart,
		DataCollectionEnd:         r.DataCollectionEnd,
	}
}

// FromSummaries converts study summaries for the list endpoint.
func FromSummaries(summaries []store.StudySummary) StudyListResponse {
	out := StudyListResponse{Studies: make([]StudySummary, 0, len(summaries))}
	for _, s := range summaries {
		out.Studies = append(out.Studies, StudySummary{
			Name:                s.Name,
			NameShort:           s.NameShort,
			SongCount:           s.SongCount,
			DimensionCount:      s.DimensionCount,
			ParticipantCount:    s.ParticipantCount,
			RatingCount:         s.RatingCount,
			DataCollectionStart: s.DataCollectionStart.UTC(),
			DataCollectionEnd:   s.DataCollectionEnd.UTC(),
		})
	}
	return out
}

// ToSubmission converts a wire submission for the store.
func (r RatingSubmission) ToSubmission() store.Submission {
	ts := r.Timestamp
	if !ts.IsZero() {
		ts = ts.UTC()
	}
	return store.Submission{
		UID:       r.UID,
		NameShort: r.NameShort,
		SongIndex: r.SongIndex,
		SongURL:   r.SongURL,
		Ratings:   r.Ratings,
		Timestamp: ts,
	}
}

// FromProgress converts per-song progress. CanFinish is true only when every
// song is complete.
func FromProgress(nameShort, uid string, progress []store.SongProgress) ProgressResponse {
	out := ProgressResponse{
		NameShort: nameShort,
		UID:       uid,
		Songs:     make([]SongProgress, 0, len(progress)),
		CanFinish: len(progress) > 0,
	}
	for _, p := range progress {
		out.Songs = append(out.Songs, SongProgress(p))
		if p.Status != completion.StatusComplete {
			out.CanFinish = false
		}
	}
	return out
}

// NewSubmission builds a submission stamped with the current time.
func NewSubmission(uid, nameShort string, songIndex int, songURL string, ratings map[string][]rating.Segment) RatingSubmission {
	return RatingSubmission{
		UID:       uid,
		NameShort: nameShort,
		SongIndex: songIndex,
		SongURL:   songURL,
		Ratings:   ratings,
		Timestamp: time.Now().UTC(),
	}
}
