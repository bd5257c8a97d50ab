package api

import (
	"time"

	"github.com/nbirkeland/eihwaz/internal/models"
	"github.com/nbirkeland/eihwaz/internal/vault"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path        string         `json:"path" example:"notes/hello.md" validate:"required"`
	Content     string         `json:"content" example:"# Hello\nWorld" validate:"required"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// UpdateNoteRequest is the request body for updating a note. Omitted
// fields keep their current values.
type UpdateNoteRequest struct {
	Content     *string        `json:"content,omitempty" example:"# Updated\nContent"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// NoteDetail is the full note response type.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	WordCount   int            `json:"word_count"`
	Links       []string       `json:"links"`
	Backlinks   []string       `json:"backlinks"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteListItem `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []vault.Match `json:"results" validate:"required"`
}

// GraphNode is a node in the knowledge graph.
type GraphNode struct {
	ID    string `json:"id" example:"notes/hello.md" validate:"required"`
	Title string `json:"title,omitempty" example:"Hello"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode   `json:"nodes" validate:"required"`
	Links []models.Link `json:"links" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
