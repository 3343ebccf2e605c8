package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/patch"
)

// longNote is comfortably over the default minimum length and trips every
// rule detector: bare first line, a task phrase, and sloppy spacing.
const longNote = "Vendor call notes\nTODO: send the follow-up email to the vendor\n\n\n\nbudget budget budget details details pending\n"

type fakeAI struct {
	suggestions []Suggestion
	err         error
	calls       int
}

func (f *fakeAI) AnalyzeContent(_ context.Context, _ string) ([]Suggestion, error) {
	f.calls++
	return f.suggestions, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAnalyze_UnchangedHashReturnsNil(t *testing.T) {
	a := New(nil, 0, testLogger())

	first := a.Analyze(context.Background(), longNote, 0)
	if first == nil {
		t.Fatal("first pass returned nil")
	}
	if second := a.Analyze(context.Background(), longNote, first.ContentHash); second != nil {
		t.Fatalf("second pass = %+v, want nil for unchanged content", second)
	}
}

func TestAnalyze_ChangedContentReanalyzes(t *testing.T) {
	a := New(nil, 0, testLogger())

	first := a.Analyze(context.Background(), longNote, 0)
	edited := longNote + "one more line\n"
	second := a.Analyze(context.Background(), edited, first.ContentHash)
	if second == nil {
		t.Fatal("edited content was not re-analyzed")
	}
	if second.ContentHash == first.ContentHash {
		t.Fatal("fingerprint did not change with the content")
	}
}

func TestAnalyze_ShortContent(t *testing.T) {
	a := New(nil, 0, testLogger())
	content := "tiny note"

	res := a.Analyze(context.Background(), content, 0)
	if res == nil {
		t.Fatal("short content must still produce a result")
	}
	if len(res.Suggestions) != 0 {
		t.Fatalf("suggestions = %+v, want none for short content", res.Suggestions)
	}
	if res.ContentHash != checksum.Fingerprint(content) {
		t.Fatal("hash must be recorded even when analysis is skipped")
	}
	if res.AnalyzedAt.IsZero() {
		t.Fatal("AnalyzedAt not set")
	}
}

func TestAnalyze_RuleScan(t *testing.T) {
	a := New(nil, 0, testLogger())

	res := a.Analyze(context.Background(), longNote, 0)
	if res == nil {
		t.Fatal("Analyze returned nil")
	}

	byAction := make(map[action.Action]Suggestion, len(res.Suggestions))
	for _, s := range res.Suggestions {
		byAction[s.Action] = s
	}

	wantPriorities := map[action.Action]Priority{
		action.TitleTags:    PriorityHigh,
		action.ExtractTasks: PriorityHigh,
		action.Summarize:    PriorityMedium,
		action.Rewrite:      PriorityLow,
	}
	for act, want := range wantPriorities {
		s, ok := byAction[act]
		if !ok {
			t.Errorf("no suggestion for %s", act)
			continue
		}
		if s.Priority != want {
			t.Errorf("%s priority = %s, want %s", act, s.Priority, want)
		}
		if len(s.Ops) == 0 {
			t.Errorf("%s suggestion carries no ops", act)
		}
		if s.ID == "" {
			t.Errorf("%s suggestion has no id", act)
		}
	}

	// The task suggestion must come from the real-extraction branch.
	if s, ok := byAction[action.ExtractTasks]; ok {
		if strings.Contains(s.Rationale, "placeholder") {
			t.Errorf("extract-tasks rationale = %q, want real extraction", s.Rationale)
		}
		applied := patch.Apply(longNote, s.Ops)
		if !strings.Contains(applied, "- [ ] send the follow-up email to the vendor") {
			t.Errorf("task checklist missing extracted item:\n%s", applied)
		}
	}
}

func TestAnalyze_AIFirst(t *testing.T) {
	ai := &fakeAI{suggestions: []Suggestion{{
		ID:        "s1",
		Action:    action.Summarize,
		Rationale: "model says summarize",
		Ops:       []patch.Op{patch.Insert(0, "x")},
		Priority:  PriorityMedium,
	}}}
	a := New(ai, 0, testLogger())

	res := a.Analyze(context.Background(), longNote, 0)
	if ai.calls != 1 {
		t.Fatalf("ai calls = %d, want 1", ai.calls)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].ID != "s1" {
		t.Fatalf("suggestions = %+v, want the AI result verbatim", res.Suggestions)
	}
}

func TestAnalyze_AIEmptyVerdictIsFinal(t *testing.T) {
	ai := &fakeAI{suggestions: []Suggestion{}}
	a := New(ai, 0, testLogger())

	res := a.Analyze(context.Background(), longNote, 0)
	if len(res.Suggestions) != 0 {
		t.Fatalf("suggestions = %+v, want the AI's empty verdict kept", res.Suggestions)
	}
}

func TestAnalyze_AIErrorFallsBackToRules(t *testing.T) {
	ai := &fakeAI{err: errors.New("no model")}
	a := New(ai, 0, testLogger())

	res := a.Analyze(context.Background(), longNote, 0)
	if len(res.Suggestions) == 0 {
		t.Fatal("rule fallback did not run after AI error")
	}
}

func TestAnalyze_AINilFallsBackToRules(t *testing.T) {
	ai := &fakeAI{}
	a := New(ai, 0, testLogger())

	res := a.Analyze(context.Background(), longNote, 0)
	if len(res.Suggestions) == 0 {
		t.Fatal("rule fallback did not run after a nil AI verdict")
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"low", PriorityLow},
		{"HIGH", PriorityHigh},
		{"Medium", PriorityMedium},
		{"urgent", PriorityMedium},
		{"", PriorityMedium},
	}
	for _, tt := range tests {
		if got := ParsePriority(tt.in); got != tt.want {
			t.Errorf("ParsePriority(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
