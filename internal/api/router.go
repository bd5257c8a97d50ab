package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nbirkeland/eihwaz/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the attachments directory.
func NewRouter(v *vault.Vault, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(v)
	ah := NewAttachmentHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Search.
	r.Get("/search", h.Search)

	// Graph and link analytics.
	r.Get("/graph", h.Graph)
	r.Get("/links/backlinks", h.Backlinks)
	r.Get("/links/forward", h.ForwardLinks)
	r.Get("/analysis", h.Analysis)
	r.Get("/stats", h.Stats)

	// Attachments.
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
