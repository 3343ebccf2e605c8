package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/wikilink"
)

// NoteBacklinks handles GET /api/notes/*/backlinks.
//
//	@Summary		List notes linking to this note
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/backlinks [get]
func (h *Handler) NoteBacklinks(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	backlinks, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		respondError(w, "backlinks", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backlinks": nonNilSlice(backlinks),
	})
}

// NoteBrokenLinks handles GET /api/notes/*/broken-links.
//
//	@Summary		List wiki links in this note that resolve to no note
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	BrokenLinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/broken-links [get]
func (h *Handler) NoteBrokenLinks(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	broken, err := h.svc.BrokenLinks(r.Context(), path)
	if err != nil {
		respondError(w, "broken links", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"broken_links": nonNilSlice(broken),
	})
}

// AllBrokenLinks handles GET /api/broken-links.
//
//	@Summary		Report broken wiki links across the whole vault
//	@Tags			links
//	@Produce		json
//	@Success		200	{object}	VaultBrokenLinksResponse
//	@Security		BearerAuth
//	@Router			/broken-links [get]
func (h *Handler) AllBrokenLinks(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.AllBrokenLinks(r.Context())
	if err != nil {
		respondError(w, "broken links report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"broken_links": report,
	})
}

// RenameNote handles POST /api/notes/*/rename.
//
//	@Summary		Retitle a note and rewrite links across the vault
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			body	body		RenameNoteRequest	true	"New title"
//	@Success		200		{object}	RenameResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/rename [post]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req RenameNoteRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}
	affected, err := h.svc.RenameNote(r.Context(), path, req.Title)
	if err != nil {
		respondError(w, "rename", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"affected": nonNilSlice(affected),
	})
}

// LinkCompletion handles POST /api/link-completion.
//
//	@Summary		Report link-typing state and candidate titles at a caret
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinkCompletionRequest	true	"Editor content and caret"
//	@Success		200		{object}	Completion
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/link-completion [post]
func (h *Handler) LinkCompletion(w http.ResponseWriter, r *http.Request) {
	var req LinkCompletionRequest
	if !decodeBody(w, r, 10<<20, &req) {
		return
	}
	comp, err := h.svc.LinkCompletion(r.Context(), req.Content, req.Caret)
	if err != nil {
		respondError(w, "link completion", err)
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

// AcceptCompletion handles POST /api/link-completion/accept.
//
//	@Summary		Splice a chosen title into an in-progress wiki link
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AcceptCompletionRequest	true	"Editor state and chosen title"
//	@Success		200		{object}	AcceptCompletionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/link-completion/accept [post]
func (h *Handler) AcceptCompletion(w http.ResponseWriter, r *http.Request) {
	var req AcceptCompletionRequest
	if !decodeBody(w, r, 10<<20, &req) {
		return
	}
	content, caret := wikilink.Complete(req.Content, req.Start, req.Caret, req.Title)
	writeJSON(w, http.StatusOK, AcceptCompletionResponse{Content: content, Caret: caret})
}
