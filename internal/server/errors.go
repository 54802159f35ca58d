package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"audiorating/internal/api"
	"audiorating/internal/logging"
	"audiorating/internal/store"
)

var errBadRequest = errors.New("invalid request data")

// statusFor maps store error kinds to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, errBadRequest) {
		return http.StatusUnprocessableEntity
	}
	switch store.ErrorKind(err) {
	case "not_found":
		return http.StatusNotFound
	case "forbidden":
		return http.StatusForbidden
	case "validation":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) (detail, message string) {
	switch status {
	case http.StatusUnprocessableEntity:
		return "Invalid request data", "Please check your request data format and values"
	case http.StatusNotFound:
		return "Not found", "The requested study or recording does not exist"
	case http.StatusForbidden:
		return "Forbidden", "This participant cannot submit to this study right now"
	case http.StatusUnauthorized:
		return "Unauthorized", "A valid API token is required"
	default:
		return "Internal server error", "Something went wrong on our end"
	}
}

// fail logs err under a fresh error_id and writes the generic body. Details
// stay in the log unless server.debug is set; clients only see the reference.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := ""
	if s.cfg.Server.Debug {
		detail = err.Error()
	}
	errorID := writeFailure(w, r, status, detail)
	logger := logging.WithContext(r.Context(), s.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorID, errorID),
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "request_error", attrs...)
		return
	}
	logger.Info("request rejected", logging.Args(attrs...)...)
}

func writeFailure(w http.ResponseWriter, _ *http.Request, status int, detail string) string {
	errorID := uuid.NewString()
	defaultDetail, message := messageFor(status)
	if detail == "" {
		detail = defaultDetail
	}
	writeJSON(w, status, api.ErrorResponse{Detail: detail, ErrorID: errorID, Message: message})
	return errorID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", logging.Error(err))
	}
}
