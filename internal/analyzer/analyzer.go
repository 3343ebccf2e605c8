// Package analyzer scans note content for improvement opportunities while
// the user is idle. Repeated passes over unchanged content are skipped via
// a cheap content fingerprint.
package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/patch"
)

// DefaultMinLength is the content size in bytes under which analysis is
// skipped. Short notes produce noise, not suggestions.
const DefaultMinLength = 50

// Priority orders suggestions for display. Advisory only; it carries no
// correctness meaning.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes a wire priority, defaulting to medium for
// anything unrecognized.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(s)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	}
	return PriorityMedium
}

// RulePriority is the fixed priority of a rule-backed action's suggestions.
func RulePriority(a action.Action) Priority {
	switch a {
	case action.TitleTags, action.ExtractTasks:
		return PriorityHigh
	case action.Summarize:
		return PriorityMedium
	}
	return PriorityLow
}

// Suggestion is one proposed improvement. Suggestions are ephemeral,
// recomputed on every pass, and only become patches once accepted.
type Suggestion struct {
	ID        string        `json:"id"`
	Action    action.Action `json:"action"`
	Rationale string        `json:"rationale"`
	Ops       []patch.Op    `json:"ops"`
	Priority  Priority      `json:"priority"`
}

// Result is the outcome of one analysis pass. ContentHash is the
// fingerprint of the analyzed content; callers pass it back on the next
// call to skip re-analysis.
type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
	ContentHash uint32       `json:"content_hash"`
}

// ContentAnalyzer is the AI collaborator. Returning (nil, nil) means it
// had nothing to offer; errors demote to the rule scan. A non-nil empty
// slice is a valid "no suggestions" verdict and is returned as-is.
type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, content string) ([]Suggestion, error)
}

// Analyzer runs idle-time analysis, AI first with a rule fallback.
type Analyzer struct {
	ai        ContentAnalyzer
	minLength int
	logger    *slog.Logger
}

// New builds an Analyzer. ai may be nil when no backend is configured;
// minLength <= 0 selects DefaultMinLength.
func New(ai ContentAnalyzer, minLength int, logger *slog.Logger) *Analyzer {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Analyzer{ai: ai, minLength: minLength, logger: logger}
}

// Analyze inspects content and returns suggestions. It returns nil when
// the content fingerprint equals previousHash, meaning nothing changed
// since the last pass. Content below the minimum length yields a result
// with no suggestions; its hash is still recorded so the next pass can
// short-circuit too.
func (a *Analyzer) Analyze(ctx context.Context, content string, previousHash uint32) *Result {
	hash := checksum.Fingerprint(content)
	if hash == previousHash {
		return nil
	}

	res := &Result{AnalyzedAt: time.Now().UTC(), ContentHash: hash}
	if len(content) < a.minLength {
		return res
	}

	if a.ai != nil {
		suggestions, err := a.ai.AnalyzeContent(ctx, content)
		switch {
		case err != nil:
			a.logger.Warn("ai analysis failed, using rule scan", slog.String("error", err.Error()))
		case suggestions != nil:
			res.Suggestions = suggestions
			return res
		}
	}

	res.Suggestions = a.ruleScan(content)
	return res
}

// ruleScan runs every rule-backed action against content and keeps the
// ones that would change something.
func (a *Analyzer) ruleScan(content string) []Suggestion {
	var out []Suggestion
	for _, act := range []action.Action{action.TitleTags, action.ExtractTasks, action.Summarize, action.Rewrite} {
		rule, ok := action.RuleFor(act)
		if !ok {
			continue
		}
		resp := rule(content)
		if len(resp.Ops) == 0 {
			continue
		}
		out = append(out, Suggestion{
			ID:        uuid.NewString(),
			Action:    act,
			Rationale: resp.Rationale,
			Ops:       resp.Ops,
			Priority:  RulePriority(act),
		})
	}
	return out
}
