package patch

import (
	"time"

	"github.com/google/uuid"
)

// Status is the patch lifecycle state.
type Status string

// Lifecycle states. A patch is created pending and moves exactly once to
// applied or rejected; terminal patches never re-open.
const (
	StatusPending  Status = "pending"
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusApplied || s == StatusRejected
}

// Patch is a stored edit proposal for one note. Ops were computed against
// the content whose checksum is SnapshotChecksum; appliers must re-validate
// against the current content before composing them.
type Patch struct {
	ID               string    `json:"id"`
	NotePath         string    `json:"note_path"`
	Action           string    `json:"action"`
	Rationale        string    `json:"rationale"`
	Ops              []Op      `json:"ops"`
	Status           Status    `json:"status"`
	SnapshotChecksum string    `json:"snapshot_checksum"`
	CreatedAt        time.Time `json:"created_at"`
}

// New creates a pending patch with a fresh ID.
func New(notePath, action, rationale string, ops []Op, snapshotChecksum string) *Patch {
	return &Patch{
		ID:               uuid.NewString(),
		NotePath:         notePath,
		Action:           action,
		Rationale:        rationale,
		Ops:              ops,
		Status:           StatusPending,
		SnapshotChecksum: snapshotChecksum,
		CreatedAt:        time.Now().UTC(),
	}
}
