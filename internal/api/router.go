package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/noteservice"
)

// NewRouter mounts the whole REST surface: notes CRUD with per-note
// subresources, the patch lifecycle, link tooling, search, the graph,
// attachments, and (when sseHandler is non-nil) the event stream at
// GET /events. Every route sits behind the same Bearer auth middleware.
// vaultRoot locates the attachments directory on disk.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD. The GET and POST wildcards also carry the per-note
	// subresources (patch, patches, analyze, backlinks, broken-links,
	// rename); see splitNotePath.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.routeNoteGet)
	r.Post("/notes/*", h.routeNotePost)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Patch lifecycle.
	r.Get("/patches", h.ListPatches)
	r.Get("/patches/{id}", h.GetPatch)
	r.Post("/patches/{id}/apply", h.ApplyPatch)
	r.Post("/patches/{id}/reject", h.RejectPatch)

	// Link graph.
	r.Get("/broken-links", h.AllBrokenLinks)
	r.Post("/link-completion", h.LinkCompletion)
	r.Post("/link-completion/accept", h.AcceptCompletion)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)

	// Attachments (auth-protected like the rest).
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
