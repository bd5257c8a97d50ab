// Package storage defines the vault file-system abstraction.
package storage

import "github.com/nbirkeland/eihwaz/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root; implementations must refuse anything that
// escapes it.
type Provider interface {
	// List returns metadata for every markdown file under dir, skipping
	// hidden entries.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Stat returns metadata for a single file.
	Stat(path string) (models.FileMeta, error)
}
