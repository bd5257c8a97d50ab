//go:build sqlite_fts5

package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nbirkeland/eihwaz/internal/models"
)

func newDefaultEngine() (Engine, error) {
	return NewSQLiteEngine()
}

// SQLiteEngine is an in-memory FTS5 index, available when the binary is
// built with the sqlite_fts5 tag.
type SQLiteEngine struct {
	conn *sql.DB
}

// NewSQLiteEngine opens an in-memory database with a single FTS5 table.
func NewSQLiteEngine() (*SQLiteEngine, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("search: open sqlite: %w", err)
	}
	_, err = conn.Exec(`
		CREATE VIRTUAL TABLE notes_fts USING fts5(
			path UNINDEXED,
			name,
			title,
			content,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("search: create fts table: %w", err)
	}
	return &SQLiteEngine{conn: conn}, nil
}

// Index adds or replaces a note.
func (e *SQLiteEngine) Index(note *models.Note) error {
	if _, err := e.conn.Exec(`DELETE FROM notes_fts WHERE path = ?`, note.Path); err != nil {
		return fmt.Errorf("search: clear %s: %w", note.Path, err)
	}
	_, err := e.conn.Exec(
		`INSERT INTO notes_fts (path, name, title, content, tags) VALUES (?, ?, ?, ?, ?)`,
		note.Path, note.Name, note.Title, note.Body, strings.Join(note.Tags, " "),
	)
	if err != nil {
		return fmt.Errorf("search: index %s: %w", note.Path, err)
	}
	return nil
}

// Remove drops a note from the index.
func (e *SQLiteEngine) Remove(path string) error {
	if _, err := e.conn.Exec(`DELETE FROM notes_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: remove %s: %w", path, err)
	}
	return nil
}

// Reset rebuilds the index from scratch with the given notes.
func (e *SQLiteEngine) Reset(notes []*models.Note) error {
	tx, err := e.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM notes_fts`); err != nil {
		return fmt.Errorf("search: clear index: %w", err)
	}
	for _, n := range notes {
		_, err := tx.Exec(
			`INSERT INTO notes_fts (path, name, title, content, tags) VALUES (?, ?, ?, ?, ?)`,
			n.Path, n.Name, n.Title, n.Body, strings.Join(n.Tags, " "),
		)
		if err != nil {
			return fmt.Errorf("search: reset %s: %w", n.Path, err)
		}
	}
	return tx.Commit()
}

// Query runs an FTS5 match ranked by bm25 with the shared field weights.
// The path column is unindexed so its bm25 weight is zero.
func (e *SQLiteEngine) Query(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := e.conn.Query(`
		SELECT path, -bm25(notes_fts, 0.0, ?, ?, ?, ?)
		FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY bm25(notes_fts, 0.0, ?, ?, ?, ?)
		LIMIT ?
	`,
		WeightName, WeightTitle, WeightContent, WeightTags,
		ftsQuery(q),
		WeightName, WeightTitle, WeightContent, WeightTags,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", q, err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.Score); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Close releases the database.
func (e *SQLiteEngine) Close() error {
	return e.conn.Close()
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax, and
// adds a prefix star to the last term for as-you-type friendliness.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	if len(terms) == 0 {
		return `""`
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	quoted[len(quoted)-1] += "*"
	return strings.Join(quoted, " ")
}
