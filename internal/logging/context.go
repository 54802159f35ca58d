package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldStudy is the structured logging key for study short names.
	FieldStudy = "study"
	// FieldParticipant is the structured logging key for participant identifiers.
	FieldParticipant = "participant"
	// FieldRecording is the structured logging key for recording (song) file names.
	FieldRecording = "recording"
	// FieldCorrelationID is the structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldErrorID is the key for identifiers echoed back to API clients on failure.
	FieldErrorID = "error_id"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	studyKey
	participantKey
)

// WithRequestID stores a correlation identifier on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}

// WithStudy stores the study short name on the context.
func WithStudy(ctx context.Context, study string) context.Context {
	return withString(ctx, studyKey, study)
}

// WithParticipant stores the participant identifier on the context.
func WithParticipant(ctx context.Context, participant string) context.Context {
	return withString(ctx, participantKey, participant)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if study, ok := stringFrom(ctx, studyKey); ok {
		fields = append(fields, slog.String(FieldStudy, study))
	}
	if participant, ok := stringFrom(ctx, participantKey); ok {
		fields = append(fields, slog.String(FieldParticipant, participant))
	}
	if rid, ok := stringFrom(ctx, requestIDKey); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
