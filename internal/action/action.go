// Package action turns a requested note transformation into patch ops.
//
// Every action is tried against the AI generator first when one is
// configured; rule-backed actions fall back to deterministic generators,
// AI-only actions degrade to an explanatory no-op response. All ops are
// computed against the content snapshot passed in, so callers can hand
// them straight to patch.Apply.
package action

import (
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/patch"
)

// Action is the requested transformation kind. The set is closed: dispatch
// happens through exhaustive switches rather than free-form strings.
type Action string

const (
	Summarize    Action = "summarize"
	ExtractTasks Action = "extract-tasks"
	Rewrite      Action = "rewrite"
	TitleTags    Action = "title-tags"
	Translate    Action = "translate"
	Continue     Action = "continue"
	Ask          Action = "ask"
)

// All lists every known action, rule-backed ones first.
func All() []Action {
	return []Action{Summarize, ExtractTasks, Rewrite, TitleTags, Translate, Continue, Ask}
}

// Parse converts a wire string into an Action.
func Parse(s string) (Action, error) {
	switch a := Action(s); a {
	case Summarize, ExtractTasks, Rewrite, TitleTags, Translate, Continue, Ask:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnknownAction, s)
	}
}

func (a Action) String() string { return string(a) }

// RequiresAI reports whether the action has no deterministic fallback.
func (a Action) RequiresAI() bool {
	switch a {
	case Translate, Continue, Ask:
		return true
	}
	return false
}

// Request carries everything a generator needs to propose an edit.
// Selection, CustomPrompt, and TargetLanguage are optional and only
// consulted by the AI generator.
type Request struct {
	NotePath       string
	Content        string
	Action         Action
	Selection      string
	CustomPrompt   string
	TargetLanguage string
}

// Response is a proposed edit: ops against the request's content snapshot
// plus a human-readable rationale. Empty Ops means "no change"; the
// rationale says why.
type Response struct {
	Rationale string
	Ops       []patch.Op
}
