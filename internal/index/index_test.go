package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// linkCount returns how many stored link rows point at target (as written,
// before title resolution).
func linkCount(t *testing.T, db *DB, target string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM links WHERE target = ?`, target).Scan(&n); err != nil {
		t.Fatalf("count links: %v", err)
	}
	return n
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM patches`).Scan(&count); err != nil {
		t.Fatalf("patches table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", []string{"Other Note"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetNote(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "get.md",
		Title:     "Get Me",
		Checksum:  "c1",
		Tags:      []string{"alpha"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "body text", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	n, err := db.GetNote("get.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Get Me" || n.Checksum != "c1" {
		t.Errorf("note = %+v", n)
	}
	if len(n.Tags) != 1 || n.Tags[0] != "alpha" {
		t.Errorf("tags = %v, want [alpha]", n.Tags)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNote("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x", Tags: []string{}, UpdatedAt: time.Now()}, "body", []string{"Target"})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	if n := linkCount(t, db, "Target"); n != 0 {
		t.Errorf("expected 0 link rows after delete, got %d", n)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1", Tags: []string{}, UpdatedAt: now}, "old body", []string{"First"})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", []string{"Second"})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if n := linkCount(t, db, "First"); n != 0 {
		t.Error("old link should be removed on upsert")
	}
	if n := linkCount(t, db, "Second"); n != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListNotes(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = db.UpsertNote(NoteRow{Path: "b.md", Title: "Beta", Checksum: "1", Tags: []string{"work"}, UpdatedAt: base.Add(1 * time.Hour)}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Title: "Alpha", Checksum: "2", Tags: []string{"work", "urgent"}, UpdatedAt: base.Add(2 * time.Hour)}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "c.md", Title: "Gamma", Checksum: "3", Tags: []string{}, UpdatedAt: base}, "", nil)

	notes, total, err := db.ListNotes(0, 0, "", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(notes) != 3 {
		t.Fatalf("total = %d, len = %d, want 3/3", total, len(notes))
	}
	// Default sort is most recently updated first.
	if notes[0].Path != "a.md" {
		t.Errorf("first note = %q, want a.md", notes[0].Path)
	}

	notes, total, err = db.ListNotes(0, 0, "urgent", "")
	if err != nil {
		t.Fatalf("ListNotes tag filter: %v", err)
	}
	if total != 1 || len(notes) != 1 || notes[0].Path != "a.md" {
		t.Errorf("tag filter gave %d/%v", total, notes)
	}

	notes, _, err = db.ListNotes(0, 0, "", "title")
	if err != nil {
		t.Fatalf("ListNotes sort: %v", err)
	}
	if notes[0].Title != "Alpha" || notes[2].Title != "Gamma" {
		t.Errorf("title sort order wrong: %v", notes)
	}

	notes, total, err = db.ListNotes(2, 2, "", "path")
	if err != nil {
		t.Fatalf("ListNotes page: %v", err)
	}
	if total != 3 || len(notes) != 1 || notes[0].Path != "c.md" {
		t.Errorf("page 2 gave total=%d notes=%v", total, notes)
	}
}

func TestAllNotes(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "one.md", Title: "One", Checksum: "1", Tags: []string{"t"}, UpdatedAt: time.Now()}, "first body", []string{"Two"})
	_ = db.UpsertNote(NoteRow{Path: "two.md", Title: "Two", Checksum: "2", Tags: []string{}, UpdatedAt: time.Now()}, "second body", nil)

	notes, err := db.AllNotes()
	if err != nil {
		t.Fatalf("AllNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	// Ordered by path.
	if notes[0].Path != "one.md" || notes[0].Content != "first body" || notes[0].Title != "One" {
		t.Errorf("notes[0] = %+v", notes[0])
	}
	if notes[1].Content != "second body" {
		t.Errorf("notes[1].Content = %q", notes[1].Content)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "x.md", Checksum: "cs-x", Tags: []string{}, UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "y.md", Checksum: "cs-y", Tags: []string{}, UpdatedAt: time.Now()}, "", nil)

	m, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(m) != 2 || m["x.md"] != "cs-x" || m["y.md"] != "cs-y" {
		t.Errorf("checksums = %v", m)
	}
}

func TestGraph_ResolvesTargetsByTitle(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "hub.md", Title: "Hub", Checksum: "1", Tags: []string{}, UpdatedAt: now}, "", []string{"Spoke One", "Nowhere"})
	_ = db.UpsertNote(NoteRow{Path: "spoke.md", Title: "Spoke One", Checksum: "2", Tags: []string{}, UpdatedAt: now}, "", []string{"hub"})

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %v, want 2", nodes)
	}

	// "Spoke One" resolves exactly, "hub" resolves case-insensitively,
	// "Nowhere" matches no note and produces no edge.
	want := map[string]string{
		"hub.md":   "spoke.md",
		"spoke.md": "hub.md",
	}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %d edges", links, len(want))
	}
	for _, l := range links {
		if want[l.Source] != l.Target {
			t.Errorf("unexpected edge %s -> %s", l.Source, l.Target)
		}
	}
}

func TestGraph_NoDuplicateEdges(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	// Two notes with the same title would each resolve; the same
	// source/target pair must still appear once.
	_ = db.UpsertNote(NoteRow{Path: "src.md", Title: "Src", Checksum: "1", Tags: []string{}, UpdatedAt: now}, "", []string{"Dst", "dst"})
	_ = db.UpsertNote(NoteRow{Path: "dst.md", Title: "Dst", Checksum: "2", Tags: []string{}, UpdatedAt: now}, "", nil)

	_, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("links = %v, want exactly one src->dst edge", links)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}
	for _, tc := range cases {
		if got := escapeLike(tc.in); got != tc.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
