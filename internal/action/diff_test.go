package action

import (
	"testing"

	"github.com/starford/ansuz/internal/patch"
)

func TestDiffOps_Identity(t *testing.T) {
	if ops := diffOps("same", "same"); ops != nil {
		t.Fatalf("diffOps on equal content = %+v, want nil", ops)
	}
}

func TestDiffOps_ProducesMinimalOp(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		kind          patch.OpKind
	}{
		{"insert middle", "Hello World", "Hello Brave World", patch.OpInsert},
		{"delete middle", "Hello Brave World", "Hello World", patch.OpDelete},
		{"replace middle", "Hello cruel World", "Hello kind World", patch.OpReplace},
		{"append", "draft", "draft v2", patch.OpInsert},
		{"truncate", "banana", "bana", patch.OpDelete},
		{"full rewrite", "old text", "совсем другое", patch.OpReplace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := diffOps(tt.before, tt.after)
			if len(ops) != 1 {
				t.Fatalf("diffOps = %+v, want exactly one op", ops)
			}
			if ops[0].Kind != tt.kind {
				t.Fatalf("op kind = %s, want %s", ops[0].Kind, tt.kind)
			}
			if got := patch.Apply(tt.before, ops); got != tt.after {
				t.Fatalf("apply(diffOps) = %q, want %q", got, tt.after)
			}
		})
	}
}

func TestDiffOps_RespectsRuneBoundaries(t *testing.T) {
	// "é" and "è" share their UTF-8 lead byte; a naive byte trim would
	// split the rune.
	before, after := "aéb", "aèb"
	ops := diffOps(before, after)
	if len(ops) != 1 {
		t.Fatalf("diffOps = %+v, want one op", ops)
	}
	op := ops[0]
	if op.Start != 1 || op.End != 3 || op.Text != "è" {
		t.Fatalf("op = %+v, want whole-rune replace [1,3) with %q", op, "è")
	}
	if got := patch.Apply(before, ops); got != after {
		t.Fatalf("apply = %q, want %q", got, after)
	}
}

func TestDiffOps_RepeatedRegion(t *testing.T) {
	// Overlap between common prefix and suffix must not double-count.
	ops := diffOps("aa", "a")
	if len(ops) != 1 || ops[0].Kind != patch.OpDelete {
		t.Fatalf("diffOps = %+v, want one delete", ops)
	}
	if got := patch.Apply("aa", ops); got != "a" {
		t.Fatalf("apply = %q, want %q", got, "a")
	}
}
