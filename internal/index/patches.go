package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/patch"
)

// SavePatch stores a pending patch proposal.
func (db *DB) SavePatch(p *patch.Patch) error {
	opsJSON, err := json.Marshal(p.Ops)
	if err != nil {
		return fmt.Errorf("index: marshal ops: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO patches (id, note_path, action, rationale, ops, status, snapshot_checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.NotePath, p.Action, p.Rationale, string(opsJSON), string(p.Status), p.SnapshotChecksum, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("index: save patch: %w", err)
	}
	return nil
}

// GetPatch returns one patch by id.
func (db *DB) GetPatch(id string) (*patch.Patch, error) {
	row := db.conn.QueryRow(`
		SELECT id, note_path, action, rationale, ops, status, snapshot_checksum, created_at
		FROM patches WHERE id = ?
	`, id)
	p, err := scanPatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get patch: %w", err)
	}
	return p, nil
}

// ListPatches returns patches newest first. Empty notePath or status means
// no filter on that column.
func (db *DB) ListPatches(notePath string, status patch.Status) ([]*patch.Patch, error) {
	query := `
		SELECT id, note_path, action, rationale, ops, status, snapshot_checksum, created_at
		FROM patches
	`
	var (
		where []string
		args  []any
	)
	if notePath != "" {
		where = append(where, `note_path = ?`)
		args = append(args, notePath)
	}
	if status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(status))
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list patches: %w", err)
	}
	defer rows.Close()

	var out []*patch.Patch
	for rows.Next() {
		p, err := scanPatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPatchStatus moves a pending patch to a terminal state. It returns
// apperr.ErrPatchFinal when the patch exists but is already applied or
// rejected, and apperr.ErrNotFound when there is no such patch.
func (db *DB) SetPatchStatus(id string, status patch.Status) error {
	res, err := db.conn.Exec(`
		UPDATE patches SET status = ? WHERE id = ? AND status = ?
	`, string(status), id, string(patch.StatusPending))
	if err != nil {
		return fmt.Errorf("index: set patch status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("index: set patch status: %w", err)
	}
	if n == 1 {
		return nil
	}
	// Nothing updated: either missing or already terminal.
	if _, err := db.GetPatch(id); err != nil {
		return err
	}
	return apperr.ErrPatchFinal
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatch(r rowScanner) (*patch.Patch, error) {
	var (
		p       patch.Patch
		opsJSON string
		status  string
	)
	err := r.Scan(&p.ID, &p.NotePath, &p.Action, &p.Rationale, &opsJSON, &status, &p.SnapshotChecksum, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = patch.Status(status)
	if err := json.Unmarshal([]byte(opsJSON), &p.Ops); err != nil {
		return nil, fmt.Errorf("index: decode ops: %w", err)
	}
	return &p, nil
}
