package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the /notes/* wildcard for routes that
// take no subresource segment. Encoded slashes from OpenAPI clients
// (topics%2Fnote.md) are unescaped.
func notePath(r *http.Request) string {
	return unescapePath(strings.TrimPrefix(chi.URLParam(r, "*"), "/"))
}

// requirePath is notePath plus a 400 response for empty paths, which chi's
// wildcard happily matches.
func requirePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", false
	}
	return path, true
}

// splitNotePath splits the /notes/* wildcard into a note path and a trailing
// subresource segment. chi requires the wildcard to terminate the pattern, so
// routes like /notes/a/b.md/backlinks cannot be registered directly; the
// known subresource names are peeled off here instead. Anything else stays
// part of the note path.
func splitNotePath(r *http.Request) (string, string) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if i := strings.LastIndexByte(raw, '/'); i > 0 {
		switch sub := raw[i+1:]; sub {
		case "patch", "patches", "analyze", "backlinks", "broken-links", "rename", "move":
			return unescapePath(raw[:i]), sub
		}
	}
	return unescapePath(raw), ""
}

func unescapePath(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeNote sends a note detail with its checksum mirrored into the ETag
// header, so clients can feed it straight back through If-Match.
func writeNote(w http.ResponseWriter, status int, note *noteservice.NoteDetail) {
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, status, note)
}

// routeNoteGet dispatches GET /notes/* between the note detail handler and
// the per-note subresources.
func (h *Handler) routeNoteGet(w http.ResponseWriter, r *http.Request) {
	switch _, sub := splitNotePath(r); sub {
	case "backlinks":
		h.NoteBacklinks(w, r)
	case "broken-links":
		h.NoteBrokenLinks(w, r)
	case "patches":
		h.ListNotePatches(w, r)
	default:
		h.GetNote(w, r)
	}
}

// routeNotePost dispatches POST /notes/* to the per-note subresources.
func (h *Handler) routeNotePost(w http.ResponseWriter, r *http.Request) {
	switch _, sub := splitNotePath(r); sub {
	case "patch":
		h.GeneratePatch(w, r)
	case "analyze":
		h.AnalyzeNote(w, r)
	case "rename":
		h.RenameNote(w, r)
	case "move":
		h.MoveNote(w, r)
	default:
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		respondError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes: nonNilSlice(items),
		Total: total,
	})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Header			200		{string}	ETag	"Checksum of the stored content"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		respondError(w, "get note", err, slog.String("path", path))
		return
	}
	writeNote(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Header			201		{string}	ETag	"Checksum of the stored content"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, 10<<20, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		respondError(w, "create note", err, slog.String("path", req.Path))
		return
	}
	writeNote(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body	body		UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	NoteDetail
//	@Header			200		{string}	ETag	"Checksum of the stored content"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if !decodeBody(w, r, 10<<20, &req) {
		return
	}

	// Clients may echo the ETag verbatim; strip standard ETag quoting.
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		respondError(w, "update note", err, slog.String("path", path))
		return
	}
	writeNote(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path, ok := requirePath(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		respondError(w, "delete note", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNote handles POST /api/notes/*/move.
//
//	@Summary		Move a note to a new vault path
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Current note path"
//	@Param			body	body		MoveNoteRequest	true	"Destination path"
//	@Success		200		{object}	NoteDetail
//	@Header			200		{string}	ETag	"Checksum of the stored content"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req MoveNoteRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}
	note, err := h.svc.MoveNote(r.Context(), path, req.NewPath)
	if err != nil {
		respondError(w, "move note", err, slog.String("path", path), slog.String("new_path", req.NewPath))
		return
	}
	writeNote(w, http.StatusOK, note)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	// Whitespace-only queries would reach FTS as an empty token list.
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		respondError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNilSlice(results)})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		respondError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{
		Nodes: nonNilSlice(nodes),
		Links: nonNilSlice(links),
	})
}
