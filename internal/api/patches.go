package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/patch"
)

// parsePatchStatus validates the ?status= query value. Empty means no filter.
func parsePatchStatus(s string) (patch.Status, error) {
	switch patch.Status(s) {
	case "", patch.StatusPending, patch.StatusApplied, patch.StatusRejected:
		return patch.Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// GeneratePatch handles POST /api/notes/*/patch.
//
//	@Summary		Generate an edit patch for a note
//	@Tags			patches
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string					true	"Note path"
//	@Param			body	body		GeneratePatchRequest	true	"Action and options"
//	@Success		201		{object}	Patch
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/patch [post]
func (h *Handler) GeneratePatch(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req GeneratePatchRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}
	act, err := action.Parse(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	p, err := h.svc.GeneratePatch(r.Context(), path, act, noteservice.PatchOptions{
		Selection:      req.Selection,
		CustomPrompt:   req.CustomPrompt,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		respondError(w, "generate patch", err, slog.String("path", path), slog.String("action", req.Action))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListNotePatches handles GET /api/notes/*/patches.
//
//	@Summary		List patches recorded for a note
//	@Tags			patches
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			status	query		string	false	"Filter by status"	Enums(pending, applied, rejected)
//	@Success		200		{object}	PatchListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/patches [get]
func (h *Handler) ListNotePatches(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	status, err := parsePatchStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	patches, err := h.svc.ListPatches(r.Context(), path, status)
	if err != nil {
		respondError(w, "list patches", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patches": nonNilSlice(patches),
	})
}

// ListPatches handles GET /api/patches.
//
//	@Summary		List patches across the vault
//	@Tags			patches
//	@Produce		json
//	@Param			note	query		string	false	"Filter by note path"
//	@Param			status	query		string	false	"Filter by status"	Enums(pending, applied, rejected)
//	@Success		200		{object}	PatchListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patches [get]
func (h *Handler) ListPatches(w http.ResponseWriter, r *http.Request) {
	status, err := parsePatchStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	patches, err := h.svc.ListPatches(r.Context(), r.URL.Query().Get("note"), status)
	if err != nil {
		respondError(w, "list patches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patches": nonNilSlice(patches),
	})
}

// GetPatch handles GET /api/patches/{id}.
//
//	@Summary		Get a patch by ID
//	@Tags			patches
//	@Produce		json
//	@Param			id	path		string	true	"Patch ID"
//	@Success		200	{object}	Patch
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patches/{id} [get]
func (h *Handler) GetPatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.GetPatch(r.Context(), id)
	if err != nil {
		respondError(w, "get patch", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ApplyPatch handles POST /api/patches/{id}/apply.
//
//	@Summary		Apply a pending patch to its note
//	@Tags			patches
//	@Produce		json
//	@Param			id	path		string	true	"Patch ID"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patches/{id}/apply [post]
func (h *Handler) ApplyPatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.ApplyPatch(r.Context(), id)
	if err != nil {
		respondError(w, "apply patch", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RejectPatch handles POST /api/patches/{id}/reject.
//
//	@Summary		Reject a pending patch
//	@Tags			patches
//	@Produce		json
//	@Param			id	path		string	true	"Patch ID"
//	@Success		200	{object}	Patch
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/patches/{id}/reject [post]
func (h *Handler) RejectPatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.RejectPatch(r.Context(), id); err != nil {
		respondError(w, "reject patch", err, slog.String("id", id))
		return
	}
	p, err := h.svc.GetPatch(r.Context(), id)
	if err != nil {
		respondError(w, "get patch", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AnalyzeNote handles POST /api/notes/*/analyze.
//
//	@Summary		Run the suggestion analyzer against a note
//	@Tags			patches
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	AnalyzeResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path}/analyze [post]
func (h *Handler) AnalyzeNote(w http.ResponseWriter, r *http.Request) {
	path, _ := splitNotePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.AnalyzeNote(r.Context(), path)
	if err != nil {
		respondError(w, "analyze", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skipped": res == nil,
		"result":  res,
	})
}
