// Package models defines the domain types for Eihwaz.
package models

import "time"

// Note represents a parsed Markdown file in the vault. A Note is replaced
// wholesale whenever its file changes; no field is ever updated on its own.
type Note struct {
	Path        string         `json:"path"`
	Name        string         `json:"name"` // path without directory and .md extension
	Body        string         `json:"body"` // content with frontmatter stripped
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Title       string         `json:"title,omitempty"`
	Refs        []string       `json:"refs,omitempty"` // outgoing references as written
	Tags        []string       `json:"tags,omitempty"`
	WordCount   int            `json:"word_count"`
	Checksum    string         `json:"checksum"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight representation returned by list operations.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	WordCount int       `json:"word_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta describes a vault file on disk.
type FileMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a resolved directed edge between two notes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
