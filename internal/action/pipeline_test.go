package action

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/patch"
)

type fakeGenerator struct {
	draft *Draft
	err   error
	calls int
	last  Request
}

func (f *fakeGenerator) GeneratePatch(_ context.Context, req Request) (*Draft, error) {
	f.calls++
	f.last = req
	return f.draft, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGenerate_PrefersAI(t *testing.T) {
	content := "Hello World"
	gen := &fakeGenerator{draft: &Draft{Rationale: "tightened wording", NewContent: "Hello Brave World"}}
	p := NewPipeline(gen, testLogger())

	resp := p.Generate(context.Background(), Request{NotePath: "n.md", Content: content, Action: Rewrite})

	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if resp.Rationale != "tightened wording" {
		t.Fatalf("rationale = %q, want the AI rationale", resp.Rationale)
	}
	if got := patch.Apply(content, resp.Ops); got != "Hello Brave World" {
		t.Fatalf("applied = %q, want the AI draft", got)
	}
}

func TestGenerate_AINoChange(t *testing.T) {
	content := "already perfect"
	gen := &fakeGenerator{draft: &Draft{Rationale: "nothing to improve", NewContent: content}}
	p := NewPipeline(gen, testLogger())

	resp := p.Generate(context.Background(), Request{Content: content, Action: Rewrite})

	if len(resp.Ops) != 0 {
		t.Fatalf("ops = %+v, want none when the draft equals the content", resp.Ops)
	}
	if resp.Rationale != "nothing to improve" {
		t.Fatalf("rationale = %q, want the AI rationale kept", resp.Rationale)
	}
}

func TestGenerate_FallsBackOnAIError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	p := NewPipeline(gen, testLogger())

	resp := p.Generate(context.Background(), Request{Content: "messy  \ntext", Action: Rewrite})

	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if len(resp.Ops) != 1 {
		t.Fatalf("ops = %+v, want the rule fallback to fire", resp.Ops)
	}
	if got := patch.Apply("messy  \ntext", resp.Ops); got != "messy\ntext" {
		t.Fatalf("applied = %q, want rule-cleaned content", got)
	}
}

func TestGenerate_NilDraftFallsBack(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(gen, testLogger())

	resp := p.Generate(context.Background(), Request{Content: "plain prose", Action: ExtractTasks})

	if !strings.Contains(resp.Rationale, "placeholder") {
		t.Fatalf("rationale = %q, want the rule fallback branch", resp.Rationale)
	}
}

func TestGenerate_NoGeneratorRunsRules(t *testing.T) {
	p := NewPipeline(nil, testLogger())

	resp := p.Generate(context.Background(), Request{Content: "short note", Action: Summarize})

	if len(resp.Ops) != 1 {
		t.Fatalf("ops = %+v, want the summarize rule", resp.Ops)
	}
}

func TestGenerate_AIOnlyActionWithoutAI(t *testing.T) {
	p := NewPipeline(nil, testLogger())

	for _, a := range []Action{Translate, Continue, Ask} {
		resp := p.Generate(context.Background(), Request{Content: "anything", Action: a})
		if len(resp.Ops) != 0 {
			t.Errorf("%s: ops = %+v, want none", a, resp.Ops)
		}
		if !strings.Contains(resp.Rationale, "AI is required") {
			t.Errorf("%s: rationale = %q, want AI-required notice", a, resp.Rationale)
		}
	}
}

func TestGenerate_AIOnlyActionWithFailingAI(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model not loaded")}
	p := NewPipeline(gen, testLogger())

	resp := p.Generate(context.Background(), Request{Content: "q", Action: Ask})

	if len(resp.Ops) != 0 || resp.Rationale != AIRequiredRationale {
		t.Fatalf("resp = %+v, want empty ops with the AI-required rationale", resp)
	}
}
