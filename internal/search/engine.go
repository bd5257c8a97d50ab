// Package search provides the full-text index over vault notes. The index
// is derived data: it can be dropped and rebuilt from the note cache at
// any time and is never the source of truth.
package search

import "github.com/nbirkeland/eihwaz/internal/models"

// Relative weight of each note field when scoring matches.
const (
	WeightName    = 0.3
	WeightTitle   = 0.1
	WeightContent = 0.4
	WeightTags    = 0.2
)

// Hit is a single search result.
type Hit struct {
	Path   string   `json:"path"`
	Score  float64  `json:"score"`
	Fields []string `json:"fields,omitempty"` // fields the query matched in
}

// Engine indexes notes and answers ranked queries. Implementations are
// not safe for concurrent use; the vault serializes access.
type Engine interface {
	// Index adds or replaces a note in the index.
	Index(note *models.Note) error
	// Remove drops a note from the index. Unknown paths are a no-op.
	Remove(path string) error
	// Reset replaces the whole index with the given notes.
	Reset(notes []*models.Note) error
	// Query returns up to limit hits ranked by weighted relevance.
	Query(q string, limit int) ([]Hit, error)
	// Close releases engine resources.
	Close() error
}

// New returns the engine selected at build time: bleve by default, or
// SQLite FTS5 when built with the sqlite_fts5 tag.
func New() (Engine, error) {
	return newDefaultEngine()
}
