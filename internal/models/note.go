// Package models defines the domain types shared across Ansuz.
package models

import "time"

// Note is a Markdown note in the vault. The vault-relative Path is the
// note's identity; Title is derived from content (frontmatter, first H1,
// or the filename stem). Content is the plain-text source that all
// offset-addressed operations (patch ops, wiki-link spans, caret
// positions) reference.
type Note struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NoteMetadata is the lightweight representation returned by vault listing.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a directed edge between two notes, keyed by the link target text
// as written (resolution to a concrete note happens at query time).
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
