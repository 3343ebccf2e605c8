package action

import (
	"context"
	"log/slog"
)

// AIRequiredRationale explains an empty response for an AI-only action when
// no generator is configured or the configured one is unreachable.
const AIRequiredRationale = "AI is required for this action. Configure an AI backend and try again."

// Draft is a whole-document rewrite proposed by an AI generator.
type Draft struct {
	Rationale  string
	NewContent string
}

// Generator proposes drafts for a request. A nil draft with a nil error
// means the generator had nothing to offer; any error is treated as "AI
// unavailable" for that request.
type Generator interface {
	GeneratePatch(ctx context.Context, req Request) (*Draft, error)
}

// Pipeline dispatches requests to the AI generator first and falls back to
// the deterministic per-action rules.
type Pipeline struct {
	gen    Generator
	logger *slog.Logger
}

// NewPipeline builds a Pipeline. gen may be nil when no AI backend is
// configured; rule-backed actions then run their fallback directly.
func NewPipeline(gen Generator, logger *slog.Logger) *Pipeline {
	return &Pipeline{gen: gen, logger: logger}
}

// Generate produces a patch response for req. The response always carries
// a rationale; empty Ops is the "no change" signal, never an error.
func (p *Pipeline) Generate(ctx context.Context, req Request) Response {
	if p.gen != nil {
		draft, err := p.gen.GeneratePatch(ctx, req)
		switch {
		case err != nil:
			p.logger.Warn("ai patch generation failed, using fallback",
				slog.String("action", string(req.Action)),
				slog.String("note", req.NotePath),
				slog.String("error", err.Error()))
		case draft != nil:
			return Response{
				Rationale: draft.Rationale,
				Ops:       diffOps(req.Content, draft.NewContent),
			}
		}
	}

	if rule, ok := RuleFor(req.Action); ok {
		return rule(req.Content)
	}
	return Response{Rationale: AIRequiredRationale}
}
