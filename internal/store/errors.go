package store

import "errors"

var (
	// ErrNotFound marks lookups for studies or songs that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSubmission marks rating submissions that fail validation.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrParticipantNotAllowed marks participants a closed study does not list.
	ErrParticipantNotAllowed = errors.New("participant not allowed")
	// ErrOutsideCollectionWindow marks submissions received before or after the study window.
	ErrOutsideCollectionWindow = errors.New("outside data collection window")
)

// ErrorKind classifies store errors for transport mapping: "not_found",
// "validation", "forbidden", or "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrParticipantNotAllowed), errors.Is(err, ErrOutsideCollectionWindow):
		return "forbidden"
	case errors.Is(err, ErrInvalidSubmission):
		return "validation"
	default:
		return "internal"
	}
}
