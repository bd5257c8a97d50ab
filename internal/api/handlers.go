package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nbirkeland/eihwaz/internal/apperr"
	"github.com/nbirkeland/eihwaz/internal/models"
	"github.com/nbirkeland/eihwaz/internal/vault"
)

// Handler holds API route handlers over the vault.
type Handler struct {
	vault *vault.Vault
}

// NewHandler creates a new Handler.
func NewHandler(v *vault.Vault) *Handler {
	return &Handler{vault: v}
}

// notePath extracts the note path from the URL (everything after /notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// noteDetail builds the response payload for a single note.
func (h *Handler) noteDetail(n *models.Note) *NoteDetail {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return &NoteDetail{
		Path:        n.Path,
		Title:       n.Title,
		Body:        n.Body,
		Checksum:    n.Checksum,
		Tags:        tags,
		Frontmatter: n.Frontmatter,
		WordCount:   n.WordCount,
		Links:       h.vault.ForwardLinks(n.Path),
		Backlinks:   h.vault.Backlinks(n.Path),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func writeVaultError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorBody("access denied"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")

	items := h.vault.List()
	if tag != "" {
		filtered := items[:0]
		for _, it := range items {
			for _, t := range it.Tags {
				if t == tag {
					filtered = append(filtered, it)
					break
				}
			}
		}
		items = filtered
	}
	total := len(items)
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.vault.Read(path)
	if err != nil {
		writeVaultError(w, "get note", path, err)
		return
	}
	writeJSON(w, http.StatusOK, h.noteDetail(note))
}

// CreateNote handles POST /notes.
//
//	@Summary		Create a note (overwrites an existing file at the same path)
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	note, err := h.vault.Create(req.Path, req.Content, req.Frontmatter)
	if err != nil {
		writeVaultError(w, "create note", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.noteDetail(note))
}

// UpdateNote handles PUT /notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated fields"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil && req.Frontmatter == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content or frontmatter is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if ifMatch != "" {
		cur, err := h.vault.Read(path)
		if err != nil {
			writeVaultError(w, "update note", path, err)
			return
		}
		if cur.Checksum != ifMatch {
			writeVaultError(w, "update note", path, apperr.ErrConflict)
			return
		}
	}

	note, err := h.vault.Update(path, req.Content, req.Frontmatter)
	if err != nil {
		writeVaultError(w, "update note", path, err)
		return
	}
	writeJSON(w, http.StatusOK, h.noteDetail(note))
}

// DeleteNote handles DELETE /notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.vault.Delete(path); err != nil {
		writeVaultError(w, "delete note", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
//
//	@Summary		Fuzzy full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			tags	query		string	false	"Comma-separated tags, any-match"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.vault.Search(q, tags, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /graph.
//
//	@Summary		Get the knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes := []GraphNode{}
	for _, item := range h.vault.List() {
		nodes = append(nodes, GraphNode{ID: item.Path, Title: item.Title})
	}
	links := h.vault.Links()
	if links == nil {
		links = []models.Link{}
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Backlinks handles GET /links/backlinks.
//
//	@Summary		List notes linking to the given note
//	@Tags			graph
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{object}	map[string][]string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backlinks": h.vault.Backlinks(path)})
}

// ForwardLinks handles GET /links/forward.
//
//	@Summary		List resolved outgoing links of the given note
//	@Tags			graph
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{object}	map[string][]string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/forward [get]
func (h *Handler) ForwardLinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"links": h.vault.ForwardLinks(path)})
}

// Analysis handles GET /analysis.
//
//	@Summary		Analyze the link network
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	vault.LinkAnalysis
//	@Security		BearerAuth
//	@Router			/analysis [get]
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.vault.AnalyzeLinks())
}

// Stats handles GET /stats.
//
//	@Summary		Vault statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	vault.VaultStats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.vault.Statistics())
}
