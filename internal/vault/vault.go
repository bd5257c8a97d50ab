// Package vault owns the in-memory note cache, the bidirectional link
// graph, and the search index. It is the single stateful core of the
// service; every external surface talks to it through the methods here.
package vault

import (
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/nbirkeland/eihwaz/internal/apperr"
	"github.com/nbirkeland/eihwaz/internal/checksum"
	"github.com/nbirkeland/eihwaz/internal/models"
	"github.com/nbirkeland/eihwaz/internal/parser"
	"github.com/nbirkeland/eihwaz/internal/search"
	"github.com/nbirkeland/eihwaz/internal/storage"
)

// Vault is the core state machine. A single mutex serializes every
// operation, so cache, graph, and search index are never observable in a
// half-rebuilt state. Accessors hand out copies, never internal maps.
type Vault struct {
	mu     sync.Mutex
	store  storage.Provider
	engine search.Engine
	log    *slog.Logger

	notes    map[string]*models.Note
	forward  map[string]map[string]struct{}
	backward map[string]map[string]struct{}

	// The search index is derived data and may lag the cache; queries
	// rebuild it before answering when stale.
	searchStale  bool
	defaultLimit int
}

// New creates a vault over the given store and search engine. Call
// Initialize before serving queries.
func New(store storage.Provider, engine search.Engine, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		store:        store,
		engine:       engine,
		log:          logger,
		notes:        make(map[string]*models.Note),
		forward:      make(map[string]map[string]struct{}),
		backward:     make(map[string]map[string]struct{}),
		defaultLimit: 20,
	}
}

// Initialize scans the vault directory and populates the cache. One
// unreadable file never aborts the scan; it is logged and skipped. The
// graph and search index are rebuilt once at the end.
func (v *Vault) Initialize() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	metas, err := v.store.List("")
	if err != nil {
		return fmt.Errorf("vault: initial scan: %w", err)
	}
	for _, m := range metas {
		if err := v.upsertLocked(m.Path); err != nil {
			v.log.Warn("vault: scan skip",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
		}
	}
	v.rebuildGraphLocked()
	v.refreshSearchLocked()
	v.log.Info("vault: initialized", slog.Int("notes", len(v.notes)))
	return nil
}

// Close releases the search engine.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine.Close()
}

// NormalizePath converts a user-supplied note path to its cache key:
// slash-separated, cleaned, with a .md extension appended when missing.
func NormalizePath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	if !strings.HasSuffix(p, ".md") {
		p += ".md"
	}
	return p
}

// displayName is the note path without directory and extension.
func displayName(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}

// Upsert re-reads a file and replaces its cache entry wholesale, then
// rebuilds the derived structures. Used by the watcher and self-healing
// reads; programmatic CRUD goes through Create/Update.
func (v *Vault) Upsert(p string) error {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.upsertLocked(p); err != nil {
		return err
	}
	v.rebuildGraphLocked()
	v.searchStale = true
	return nil
}

// Remove drops a note from the cache if present and purges every graph
// reference to it. Unknown paths are a no-op, so the watcher can feed
// delete events without checking first.
func (v *Vault) Remove(p string) {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.notes[p]; !ok {
		return
	}
	delete(v.notes, p)
	v.rebuildGraphLocked()
	v.searchStale = true
}

// Create writes a new note file and caches it. The frontmatter block is
// serialized only when non-empty. An existing file at the same path is
// overwritten; no existence check is made here.
func (v *Vault) Create(p, content string, frontmatter map[string]any) (*models.Note, error) {
	p = NormalizePath(p)
	data, err := parser.Render(frontmatter, content)
	if err != nil {
		return nil, fmt.Errorf("vault: render %s: %w", p, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.store.Write(p, data); err != nil {
		return nil, err
	}
	if err := v.upsertLocked(p); err != nil {
		return nil, err
	}
	v.rebuildGraphLocked()
	v.refreshSearchLocked()
	return v.copyNoteLocked(p), nil
}

// Update rewrites an existing note. A nil content or frontmatter keeps
// the current value; an empty non-nil frontmatter clears the block. The
// note must already be cached.
func (v *Vault) Update(p string, content *string, frontmatter map[string]any) (*models.Note, error) {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()

	cur, ok := v.notes[p]
	if !ok {
		return nil, fmt.Errorf("vault: update %s: %w", p, apperr.ErrNotFound)
	}
	body := cur.Body
	if content != nil {
		body = *content
	}
	fm := cur.Frontmatter
	if frontmatter != nil {
		fm = frontmatter
	}
	data, err := parser.Render(fm, body)
	if err != nil {
		return nil, fmt.Errorf("vault: render %s: %w", p, err)
	}
	if err := v.store.Write(p, data); err != nil {
		return nil, err
	}
	if err := v.upsertLocked(p); err != nil {
		return nil, err
	}
	v.rebuildGraphLocked()
	v.refreshSearchLocked()
	return v.copyNoteLocked(p), nil
}

// Delete removes a note file and purges it from cache and graph.
func (v *Vault) Delete(p string) error {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.notes[p]; !ok {
		return fmt.Errorf("vault: delete %s: %w", p, apperr.ErrNotFound)
	}
	if err := v.store.Delete(p); err != nil {
		return err
	}
	delete(v.notes, p)
	v.rebuildGraphLocked()
	v.refreshSearchLocked()
	return nil
}

// Read returns a copy of the cached note. A file present on disk but
// missing from the cache (the watcher has not seen it yet) is upserted
// first, so reads self-heal.
func (v *Vault) Read(p string) (*models.Note, error) {
	p = NormalizePath(p)
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.notes[p]; !ok {
		if _, err := v.store.Stat(p); err != nil {
			return nil, err
		}
		if err := v.upsertLocked(p); err != nil {
			return nil, err
		}
		v.rebuildGraphLocked()
		v.searchStale = true
	}
	return v.copyNoteLocked(p), nil
}

// List returns lightweight entries for every cached note, sorted by path.
func (v *Vault) List() []models.NoteListItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.NoteListItem, 0, len(v.notes))
	for _, p := range v.sortedPathsLocked() {
		n := v.notes[p]
		out = append(out, models.NoteListItem{
			Path:      n.Path,
			Title:     n.Title,
			Tags:      slices.Clone(n.Tags),
			WordCount: n.WordCount,
			UpdatedAt: n.UpdatedAt,
		})
	}
	return out
}

// upsertLocked reads, parses, and replaces one cache entry wholesale.
// The creation timestamp survives across upserts; for files first seen
// here it falls back to the modification time, since birth time is not
// portably available.
func (v *Vault) upsertLocked(p string) error {
	meta, err := v.store.Stat(p)
	if err != nil {
		return err
	}
	data, err := v.store.Read(p)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("vault: parse %s: %w", p, err)
	}

	created := meta.UpdatedAt
	if prev, ok := v.notes[p]; ok && !prev.CreatedAt.IsZero() {
		created = prev.CreatedAt
	}
	v.notes[p] = &models.Note{
		Path:        p,
		Name:        displayName(p),
		Body:        res.Body,
		Frontmatter: res.Frontmatter,
		Title:       res.Title,
		Refs:        res.Refs,
		Tags:        res.Tags,
		WordCount:   res.WordCount,
		Checksum:    checksum.Sum(data),
		CreatedAt:   created,
		UpdatedAt:   meta.UpdatedAt,
	}
	return nil
}

// refreshSearchLocked rebuilds the search index from the full cache.
func (v *Vault) refreshSearchLocked() {
	all := make([]*models.Note, 0, len(v.notes))
	for _, n := range v.notes {
		all = append(all, n)
	}
	if err := v.engine.Reset(all); err != nil {
		v.log.Warn("vault: search rebuild failed", slog.String("error", err.Error()))
		v.searchStale = true
		return
	}
	v.searchStale = false
}

// sortedPathsLocked returns every cached path in lexicographic order.
// Iteration order is deterministic everywhere it is observable.
func (v *Vault) sortedPathsLocked() []string {
	paths := make([]string, 0, len(v.notes))
	for p := range v.notes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// copyNoteLocked returns a deep enough copy of the cached note that the
// caller cannot mutate vault state through it.
func (v *Vault) copyNoteLocked(p string) *models.Note {
	n := v.notes[p]
	cp := *n
	cp.Frontmatter = maps.Clone(n.Frontmatter)
	cp.Refs = slices.Clone(n.Refs)
	cp.Tags = slices.Clone(n.Tags)
	return &cp
}
