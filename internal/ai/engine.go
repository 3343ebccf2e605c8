package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/analyzer"
)

// DefaultTimeout bounds one model call. Local models are slow on first
// load, so this is generous.
const DefaultTimeout = 60 * time.Second

// Chatter is the chat-completion surface of Client, split out so tests can
// stub the model.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)
}

// Engine adapts a chat model to the action pipeline's Generator and the
// analyzer's ContentAnalyzer.
type Engine struct {
	client  Chatter
	model   string
	timeout time.Duration
}

// NewEngine builds an Engine for the given model. timeout <= 0 selects
// DefaultTimeout.
func NewEngine(client Chatter, model string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{client: client, model: model, timeout: timeout}
}

const generateSystemPrompt = `You are an editor embedded in a note-taking app. Rewrite the user's note according to the instruction. Respond with ONLY a single valid JSON object conforming to the provided schema: "rationale" is one sentence explaining the change, "new_content" is the complete rewritten note. If no change is needed, return the note text unchanged in "new_content". Do not wrap the JSON in markdown fences or add commentary.`

// draftResponse mirrors the structured output requested from the model.
type draftResponse struct {
	Rationale  string `json:"rationale"`
	NewContent string `json:"new_content"`
}

// GeneratePatch asks the model for a whole-document rewrite. Any
// transport, decode, or empty-output failure is returned as an error; the
// pipeline demotes those to the rule fallback.
func (e *Engine) GeneratePatch(ctx context.Context, req action.Request) (*action.Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.client.Chat(ctx, e.model, buildGenerateMessages(req), draftSchema())
	if err != nil {
		return nil, fmt.Errorf("generate patch: %w", err)
	}

	var result draftResponse
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("generate patch: decoding model output: %w", err)
	}
	// An empty rewrite of a non-empty note would diff to a full deletion;
	// refuse it rather than propose destroying the document.
	if result.NewContent == "" && req.Content != "" {
		return nil, fmt.Errorf("generate patch: model returned an empty document")
	}
	if result.Rationale == "" {
		result.Rationale = "AI-generated edit."
	}
	return &action.Draft{Rationale: result.Rationale, NewContent: result.NewContent}, nil
}

func buildGenerateMessages(req action.Request) []Message {
	var sb strings.Builder
	sb.WriteString(generateSystemPrompt)
	sb.WriteString("\n\nInstruction: ")
	sb.WriteString(instructionFor(req))
	if req.Selection != "" {
		fmt.Fprintf(&sb, "\n\nFocus on this selected passage:\n%s", req.Selection)
	}

	return []Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: req.Content},
	}
}

// instructionFor spells out each action for the model. The switch is
// exhaustive over the known actions.
func instructionFor(req action.Request) string {
	switch req.Action {
	case action.Summarize:
		return "Append a '## Summary' section that condenses the note in a few sentences. Keep the rest untouched."
	case action.ExtractTasks:
		return "Collect the note's action items into a '## Tasks' markdown checklist appended to the note. Keep the rest untouched."
	case action.Rewrite:
		return "Improve clarity and fix grammar and spacing without changing the meaning or structure."
	case action.TitleTags:
		return "Ensure the note starts with a single '# ' title heading and append a 'Tags: #one #two #three' line with up to three topical tags."
	case action.Translate:
		lang := req.TargetLanguage
		if lang == "" {
			lang = "English"
		}
		return fmt.Sprintf("Translate the entire note into %s, preserving markdown structure.", lang)
	case action.Continue:
		return "Continue writing from where the note ends, matching its tone and format. Return the original text plus the continuation."
	case action.Ask:
		prompt := req.CustomPrompt
		if prompt == "" {
			prompt = "Review the note and improve it."
		}
		return fmt.Sprintf("Follow this request from the user and return the updated note: %s", prompt)
	default:
		return "Improve the note."
	}
}

func draftSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"rationale":   {Type: "string", Description: "One sentence explaining the change"},
			"new_content": {Type: "string", Description: "The complete rewritten note"},
		},
		Required: []string{"rationale", "new_content"},
	}
}

const analyzeSystemPrompt = `You are a writing assistant reviewing one note. Propose up to four improvements, drawn ONLY from these actions: "summarize", "extract-tasks", "rewrite", "title-tags". Respond with ONLY a single valid JSON object conforming to the provided schema. Each suggestion carries the action name, a one-sentence rationale, and a priority of "low", "medium", or "high". Return an empty suggestions array if the note needs nothing.`

type analyzeResponse struct {
	Suggestions []struct {
		Action    string `json:"action"`
		Rationale string `json:"rationale"`
		Priority  string `json:"priority"`
	} `json:"suggestions"`
}

// AnalyzeContent asks the model which rule-backed actions would improve
// the note. The ops for each accepted suggestion are synthesized by
// running the named rule against the same content snapshot, so offsets
// stay valid. Unknown actions, AI-only actions, and rules that produce no
// change are dropped. Once the model answers with valid JSON the result is
// final, even when empty.
func (e *Engine) AnalyzeContent(ctx context.Context, content string) ([]analyzer.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []Message{
		{Role: "system", Content: analyzeSystemPrompt},
		{Role: "user", Content: content},
	}
	raw, err := e.client.Chat(ctx, e.model, messages, analyzeSchema())
	if err != nil {
		return nil, fmt.Errorf("analyze content: %w", err)
	}

	var result analyzeResponse
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("analyze content: decoding model output: %w", err)
	}

	out := make([]analyzer.Suggestion, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		act, err := action.Parse(s.Action)
		if err != nil {
			continue
		}
		rule, ok := action.RuleFor(act)
		if !ok {
			continue
		}
		resp := rule(content)
		if len(resp.Ops) == 0 {
			continue
		}

		rationale := s.Rationale
		if rationale == "" {
			rationale = resp.Rationale
		}
		priority := analyzer.RulePriority(act)
		if s.Priority != "" {
			priority = analyzer.ParsePriority(s.Priority)
		}
		out = append(out, analyzer.Suggestion{
			ID:        uuid.NewString(),
			Action:    act,
			Rationale: rationale,
			Ops:       resp.Ops,
			Priority:  priority,
		})
	}
	return out, nil
}

func analyzeSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"suggestions": {
				Type:        "array",
				Description: "Proposed improvements, possibly empty",
				Items: &Schema{
					Type: "object",
					Properties: map[string]SchemaProperty{
						"action":    {Type: "string", Description: "One of: summarize, extract-tasks, rewrite, title-tags"},
						"rationale": {Type: "string", Description: "One sentence explaining the suggestion"},
						"priority":  {Type: "string", Description: "low, medium, or high"},
					},
					Required: []string{"action", "rationale", "priority"},
				},
			},
		},
		Required: []string{"suggestions"},
	}
}
