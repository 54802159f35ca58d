// Package server exposes the ratings backend over HTTP.
//
// The server syncs configured studies into the store at startup, holds a
// file lock on the data directory so only one instance writes the database,
// and serves the JSON API consumed by the study frontend and the CLI client.
// Every failure response carries an error_id that is also logged, so
// participants can report a reference without seeing internals.
package server
