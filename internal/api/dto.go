package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/analyzer"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/patch"
	"github.com/starford/ansuz/internal/wikilink"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md"`
	Content string `json:"content" example:"# Hello\nWorld"`
}

// Validate implements the request contract.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent"`
}

// Validate implements the request contract.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// GeneratePatchRequest is the request body for POST /notes/*/patch. Action
// names one of the edit actions; the remaining fields refine the request and
// may be empty.
type GeneratePatchRequest struct {
	Action         string `json:"action" example:"summarize"`
	Selection      string `json:"selection,omitempty"`
	CustomPrompt   string `json:"custom_prompt,omitempty"`
	TargetLanguage string `json:"target_language,omitempty" example:"German"`
}

// Validate implements the request contract.
func (r GeneratePatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required),
	)
}

// RenameNoteRequest is the request body for POST /notes/*/rename.
type RenameNoteRequest struct {
	Title string `json:"title" example:"Quarterly Roadmap"`
}

// Validate implements the request contract.
func (r RenameNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
	)
}

// MoveNoteRequest is the request body for POST /notes/*/move.
type MoveNoteRequest struct {
	NewPath string `json:"new_path" example:"archive/hello.md"`
}

// Validate implements the request contract.
func (r MoveNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPath, validation.Required),
	)
}

// LinkCompletionRequest carries editor state for completion: the note content
// being typed and the caret byte offset within it.
type LinkCompletionRequest struct {
	Content string `json:"content"`
	Caret   int    `json:"caret" example:"42"`
}

// Validate implements the request contract.
func (r LinkCompletionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Caret, validation.Min(0)),
	)
}

// AcceptCompletionRequest asks the server to splice a chosen title into an
// in-progress link. Start is the offset of the opening [[ as reported by the
// completion endpoint.
type AcceptCompletionRequest struct {
	Content string `json:"content"`
	Start   int    `json:"start"`
	Caret   int    `json:"caret"`
	Title   string `json:"title" example:"Quarterly Roadmap"`
}

// Validate implements the request contract.
func (r AcceptCompletionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Start, validation.Min(0)),
		validation.Field(&r.Caret, validation.Min(0)),
	)
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// Patch is the patch response type (aliased from the domain layer).
type Patch = patch.Patch

// Completion is the link-completion response type (aliased from the domain layer).
type Completion = noteservice.Completion

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total" example:"42"`
}

// SearchResult is a single search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// GraphNode is a node in the knowledge graph (aliased from the index layer).
type GraphNode = index.GraphNode

// GraphLink is an edge in the knowledge graph (aliased from the index layer).
type GraphLink = index.GraphLink

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// PatchListResponse wraps patch listings.
type PatchListResponse struct {
	Patches []Patch `json:"patches"`
}

// AnalyzeResponse wraps an analysis run. Result is null when the note body
// has not changed since the last run and the analysis was skipped.
type AnalyzeResponse struct {
	Skipped bool             `json:"skipped"`
	Result  *analyzer.Result `json:"result"`
}

// BacklinksResponse wraps the backlinks of a note.
type BacklinksResponse struct {
	Backlinks []linkgraph.Backlink `json:"backlinks"`
}

// BrokenLinksResponse wraps the unresolved links of a single note.
type BrokenLinksResponse struct {
	BrokenLinks []wikilink.Link `json:"broken_links"`
}

// VaultBrokenLinksResponse wraps the vault-wide broken link report, keyed by
// the note containing the links.
type VaultBrokenLinksResponse struct {
	BrokenLinks map[string][]wikilink.Link `json:"broken_links"`
}

// RenameResponse lists the other notes rewritten by a rename.
type RenameResponse struct {
	Affected []string `json:"affected"`
}

// AcceptCompletionResponse is the spliced content and new caret position.
type AcceptCompletionResponse struct {
	Content string `json:"content"`
	Caret   int    `json:"caret" example:"58"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png"`
	Size     int64  `json:"size" example:"12345"`
	URL      string `json:"url" example:"/attachments/image.png"`
}
