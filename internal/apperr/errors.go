// Package apperr defines the sentinel errors shared across vault operations.
package apperr

import "errors"

var (
	// ErrAccessDenied is returned when a requested path escapes the vault
	// root or touches a hidden (dot-prefixed) segment.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned when an operation targets a note that is not
	// in the vault.
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory is returned at startup when the vault root exists
	// but is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAccessible is returned at startup when the vault root cannot
	// be read.
	ErrNotAccessible = errors.New("not accessible")

	// ErrConflict is returned when an If-Match checksum does not match the
	// current note content.
	ErrConflict = errors.New("conflict")
)
