package patch

import "testing"

func TestApply_EmptyOpsIdentity(t *testing.T) {
	for _, c := range []string{"", "Hello", "multi\nline\ncontent"} {
		if got := Apply(c, nil); got != c {
			t.Errorf("Apply(%q, nil) = %q, want input unchanged", c, got)
		}
	}
}

func TestApply_Insert(t *testing.T) {
	if got := Apply("Hello", []Op{Insert(0, "Say: ")}); got != "Say: Hello" {
		t.Errorf("insert at 0 = %q, want %q", got, "Say: Hello")
	}
	if got := Apply("Hello", []Op{Insert(5, " World")}); got != "Hello World" {
		t.Errorf("insert at end = %q, want %q", got, "Hello World")
	}
}

func TestApply_Delete(t *testing.T) {
	if got := Apply("Hello World", []Op{Delete(0, 6)}); got != "World" {
		t.Errorf("delete = %q, want %q", got, "World")
	}
}

func TestApply_Replace(t *testing.T) {
	if got := Apply("Hello World", []Op{Replace(0, 5, "Hi")}); got != "Hi World" {
		t.Errorf("replace = %q, want %q", got, "Hi World")
	}
}

func TestApply_MultiOpOrdering(t *testing.T) {
	got := Apply("AC", []Op{Insert(1, "B"), Insert(2, "D")})
	if got != "ABCD" {
		t.Errorf("Apply = %q, want %q", got, "ABCD")
	}
}

func TestApply_OrderIndependent(t *testing.T) {
	// Non-overlapping ops against the same snapshot compose identically
	// for any input permutation.
	content := "The quick brown fox"
	a := Insert(0, ">> ")
	b := Delete(4, 10)
	c := Replace(16, 19, "cat")

	perms := [][]Op{
		{a, b, c},
		{c, b, a},
		{b, a, c},
		{c, a, b},
	}
	want := Apply(content, perms[0])
	for i, p := range perms[1:] {
		if got := Apply(content, p); got != want {
			t.Errorf("permutation %d = %q, want %q", i+1, got, want)
		}
	}
}

func TestApply_SameStartStableBySliceOrder(t *testing.T) {
	// Ops sharing a Start apply in slice order; each later op inserts at
	// the shared offset of the running string, landing before the earlier
	// one's text.
	got := Apply("AC", []Op{Insert(1, "B"), Insert(1, "X")})
	if got != "AXBC" {
		t.Errorf("same-start = %q, want %q", got, "AXBC")
	}
}

func TestApply_DeleteWithoutEndIsNoop(t *testing.T) {
	got := Apply("Hello", []Op{{Kind: OpDelete, Start: 2}})
	if got != "Hello" {
		t.Errorf("delete without end = %q, want input unchanged", got)
	}
}

func TestApply_ReplaceWithoutEndDegeneratesToInsert(t *testing.T) {
	got := Apply("Hello", []Op{{Kind: OpReplace, Start: 2, Text: "X"}})
	if got != "HeXllo" {
		t.Errorf("replace without end = %q, want %q", got, "HeXllo")
	}
}

func TestApply_ReplaceWithoutTextDegeneratesToDelete(t *testing.T) {
	got := Apply("Hello", []Op{{Kind: OpReplace, Start: 1, End: 3}})
	if got != "Hlo" {
		t.Errorf("replace without text = %q, want %q", got, "Hlo")
	}
}

func TestApply_ClampsOutOfRange(t *testing.T) {
	if got := Apply("abc", []Op{Insert(99, "!")}); got != "abc!" {
		t.Errorf("insert past end = %q, want %q", got, "abc!")
	}
	if got := Apply("abc", []Op{Delete(1, 99)}); got != "a" {
		t.Errorf("delete past end = %q, want %q", got, "a")
	}
	if got := Apply("abc", []Op{Replace(-5, 1, "X")}); got != "Xbc" {
		t.Errorf("negative start = %q, want %q", got, "Xbc")
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	ops := []Op{Insert(2, "z"), Insert(0, "a")}
	_ = Apply("hello", ops)
	if ops[0].Start != 2 || ops[1].Start != 0 {
		t.Errorf("input slice reordered: %+v", ops)
	}
}

func TestApply_NotIdempotent(t *testing.T) {
	ops := []Op{Insert(0, "x")}
	once := Apply("y", ops)
	twice := Apply(once, ops)
	if once == twice {
		t.Error("expected second application to change the string again")
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !StatusApplied.Terminal() || !StatusRejected.Terminal() {
		t.Error("applied and rejected must be terminal")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New("a.md", "rewrite", "cleanup", []Op{Insert(0, "x")}, "cs123")
	if p.ID == "" {
		t.Error("expected generated ID")
	}
	if p.Status != StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.SnapshotChecksum != "cs123" {
		t.Errorf("snapshot checksum = %q", p.SnapshotChecksum)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}
