// Package textutil turns identifiers into safe filesystem names.
//
// Study short names and participant ids end up in local file paths and
// export file names; both come from configuration or user input, so they are
// sanitized here before touching the filesystem.
package textutil
