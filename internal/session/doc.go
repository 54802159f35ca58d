// Package session coordinates a participant's pass through a study: it
// fetches the study from the backend, sequences its recordings through a
// rating widget, keeps ratings on disk and submits them when the backend is
// reachable.
package session
