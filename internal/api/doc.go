// Package api defines wire-format types and converters for the HTTP API
// shared by the backend server and the study client. It translates store
// models into transport-friendly DTOs so neither side couples to database
// types.
//
// # Key Types
//
// StudyResponse: study definition with ordered songs and rating dimensions.
//
// StudyListResponse: summaries for every configured study.
//
// RatingSubmission: one recording's ratings from a participant.
//
// ProgressResponse: per-song completion for a participant.
//
// ErrorResponse: generic failure body carrying an error_id that operators can
// find in the server log.
//
// # Design Notes
//
// DTOs use snake_case JSON tags because the browser frontend and the
// studies configuration file both speak that dialect. Timestamps are RFC3339
// in UTC. The X-Operation response header tells submitters whether ratings
// were created or updated.
package api
