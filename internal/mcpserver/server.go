// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/patch"
	"github.com/starford/ansuz/internal/vault"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	store vault.Provider
}

// New creates a new MCP server with all Ansuz tools registered. Note,
// patch, and link operations go through the note service so MCP clients
// see exactly the semantics the REST API has; the raw store is only used
// for attachment uploads and folder listings.
func New(svc *noteservice.Service, store vault.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Content MUST follow the canonical note format (YAML frontmatter with title, "+
			"optional tags, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_note_contract tool or the ansuz://note-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Ansuz note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Ansuz note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note via [[wikilinks]]."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("find_broken_links",
		mcp.WithDescription("Find [[wikilinks]] that resolve to no existing note. "+
			"With a path, checks that note only; without, scans the whole vault."),
		mcp.WithString("path", mcp.Description("Optional path of a single note to check")),
	), s.findBrokenLinks)

	s.mcp.AddTool(mcp.NewTool("generate_patch",
		mcp.WithDescription("Run an action against a note and store the proposed edits as a "+
			"pending patch. Nothing is written to the note until apply_patch is called. "+
			"Actions: summarize, extract-tasks, rewrite, title-tags, translate, continue, ask."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to act on")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action name")),
		mcp.WithString("selection", mcp.Description("Optional selected text to focus the action on")),
		mcp.WithString("custom_prompt", mcp.Description("Free-form instruction for the ask action")),
		mcp.WithString("target_language", mcp.Description("Target language for the translate action")),
	), s.generatePatch)

	s.mcp.AddTool(mcp.NewTool("list_patches",
		mcp.WithDescription("List stored patches, optionally filtered by note path and status."),
		mcp.WithString("note", mcp.Description("Optional note path filter")),
		mcp.WithString("status", mcp.Description("Optional status filter: pending, applied or rejected")),
	), s.listPatches)

	s.mcp.AddTool(mcp.NewTool("apply_patch",
		mcp.WithDescription("Apply a pending patch to its note. Fails if the note changed "+
			"since the patch was generated or the patch was already finalized."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Patch ID")),
	), s.applyPatch)

	s.mcp.AddTool(mcp.NewTool("reject_patch",
		mcp.WithDescription("Reject a pending patch without touching the note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Patch ID")),
	), s.rejectPatch)

	s.mcp.AddTool(mcp.NewTool("analyze_note",
		mcp.WithDescription("Analyze a note for improvement opportunities (messy formatting, "+
			"embedded tasks, missing title or tags). Returns suggested actions, or reports "+
			"that the note is unchanged since the last analysis."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to analyze")),
	), s.analyzeNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Rename a note's title and rewrite every [[wikilink]] that points "+
			"at it across the vault. The file path does not change."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to rename")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note to a new vault path. The title and every [[wikilink]] "+
			"stay as they are; links target titles, not paths. Pending patches for the old "+
			"path are discarded."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current note path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("Destination path (must end with .md)")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or PDF from a URL (or decode a base64 data URI) "+
			"and store it in the shared attachments directory. Returns a markdownImage snippet "+
			"ready to paste into a note body."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNote(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.CreateNote(ctx, path, []byte(content)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getNoteContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return toolJSON(bl)
}

func (s *Server) findBrokenLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if path := req.GetString("path", ""); path != "" {
		links, blErr := s.svc.BrokenLinks(ctx, path)
		if blErr != nil {
			if errors.Is(blErr, apperr.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
			}
			return mcp.NewToolResultError(blErr.Error()), nil
		}
		if len(links) == 0 {
			return mcp.NewToolResultText("no broken links"), nil
		}
		return toolJSON(links)
	}

	report, err := s.svc.AllBrokenLinks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(report) == 0 {
		return mcp.NewToolResultText("no broken links"), nil
	}
	return toolJSON(report)
}

func (s *Server) generatePatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	act, err := action.Parse(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := noteservice.PatchOptions{
		Selection:      req.GetString("selection", ""),
		CustomPrompt:   req.GetString("custom_prompt", ""),
		TargetLanguage: req.GetString("target_language", ""),
	}

	p, err := s.svc.GeneratePatch(ctx, path, act, opts)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(p)
}

func (s *Server) listPatches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status patch.Status
	if v := req.GetString("status", ""); v != "" {
		switch v {
		case string(patch.StatusPending), string(patch.StatusApplied), string(patch.StatusRejected):
			status = patch.Status(v)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", v)), nil
		}
	}

	patches, err := s.svc.ListPatches(ctx, req.GetString("note", ""), status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(patches) == 0 {
		return mcp.NewToolResultText("no patches found"), nil
	}
	return toolJSON(patches)
}

func (s *Server) applyPatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.ApplyPatch(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("patch not found: %s", id)), nil
		case errors.Is(err, apperr.ErrPatchFinal):
			return mcp.NewToolResultError("patch already finalized"), nil
		case errors.Is(err, apperr.ErrConflict):
			return mcp.NewToolResultError("note changed since patch was created; generate a new patch"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(detail)
}

func (s *Server) rejectPatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RejectPatch(ctx, id); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("patch not found: %s", id)), nil
		case errors.Is(err, apperr.ErrPatchFinal):
			return mcp.NewToolResultError("patch already finalized"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rejected: %s", id)), nil
}

func (s *Server) analyzeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.AnalyzeNote(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res == nil {
		return mcp.NewToolResultText("note unchanged since last analysis"), nil
	}
	return toolJSON(res)
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	affected, err := s.svc.RenameNote(ctx, path, title)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		case errors.Is(err, apperr.ErrInvalidInput):
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(affected) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %q; no other notes linked to it", path, title)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %q; updated links in:\n%s",
		path, title, strings.Join(affected, "\n"))), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.MoveNote(ctx, path, newPath); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		case errors.Is(err, apperr.ErrAlreadyExists):
			return mcp.NewToolResultError(fmt.Sprintf("destination already exists: %s", newPath)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s -> %s", path, newPath)), nil
}
