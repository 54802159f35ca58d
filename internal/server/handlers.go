package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"audiorating/internal/api"
	"audiorating/internal/export"
	"audiorating/internal/logging"
	"audiorating/internal/store"
)

const maxSubmissionBytes = 4 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.HealthResponse{Message: "AR API is running"})
}

func (s *Server) handleStudies(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.backend.ListStudies(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromSummaries(summaries))
}

// handleStudy returns the study definition. With a uid query parameter the
// participant is registered first so closed studies reject strangers up front.
func (s *Server) handleStudy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nameShort := r.PathValue("name_short")
	study, err := s.backend.StudyConfig(ctx, nameShort)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if uid := strings.TrimSpace(r.URL.Query().Get("uid")); uid != "" {
		ctx = logging.WithParticipant(logging.WithStudy(ctx, nameShort), uid)
		if err := s.backend.EnsureParticipant(ctx, study, uid); err != nil {
			s.fail(w, r.WithContext(ctx), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, api.FromStudy(study))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload api.RatingSubmission
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err := decoder.Decode(&payload); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	ctx := logging.WithParticipant(logging.WithStudy(r.Context(), payload.NameShort), payload.UID)
	r = r.WithContext(ctx)

	op, err := s.backend.UpsertRatings(ctx, payload.ToSubmission())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.WithContext(ctx, s.logger).Info("ratings stored",
		logging.Int("song_index", payload.SongIndex),
		logging.String(logging.FieldRecording, payload.SongURL),
		logging.Int("dimensions", len(payload.Ratings)),
		logging.String("operation", string(op)),
	)
	w.Header().Set(api.OperationHeader, string(op))
	writeJSON(w, http.StatusOK, api.SubmitResponse{Operation: string(op)})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	nameShort := r.PathValue("name_short")
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		s.fail(w, r, fmt.Errorf("%w: uid query parameter is required", errBadRequest))
		return
	}
	progress, err := s.backend.Progress(r.Context(), nameShort, uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromProgress(nameShort, uid, progress))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	nameShort := r.PathValue("name_short")
	records, err := s.backend.RatingsForStudy(r.Context(), nameShort)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nameShort+"_ratings.csv"))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteStudyCSV(w, records); err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("export write failed",
			logging.Study(nameShort),
			logging.Error(err),
		)
	}
}

var _ Backend = (*store.Store)(nil)
