package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/patch"
)

// PatchOptions carries the optional parameters of a patch generation call.
type PatchOptions struct {
	Selection      string
	CustomPrompt   string
	TargetLanguage string
}

// GeneratePatch runs the action pipeline against the note's current body and
// persists the outcome as a pending patch. The patch is persisted even when
// it carries no ops: the rationale ("already well-formatted", "AI is
// required...") is the user-facing answer and the empty ops slice is the
// only "nothing to change" signal.
func (s *Service) GeneratePatch(ctx context.Context, path string, act action.Action, opts PatchOptions) (*patch.Patch, error) {
	raw, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	_, body, _, err := bodyOf(path, raw)
	if err != nil {
		return nil, err
	}

	resp := s.pipeline.Generate(ctx, action.Request{
		NotePath:       path,
		Content:        body,
		Action:         act,
		Selection:      opts.Selection,
		CustomPrompt:   opts.CustomPrompt,
		TargetLanguage: opts.TargetLanguage,
	})

	p := patch.New(path, string(act), resp.Rationale, resp.Ops, checksum.Sum([]byte(body)))
	if err := s.db.SavePatch(p); err != nil {
		return nil, err
	}
	s.logger.Info("patch generated",
		slog.String("id", p.ID),
		slog.String("note", path),
		slog.String("action", string(act)),
		slog.Int("ops", len(p.Ops)))
	s.publishPatch("patch.created", p)
	return p, nil
}

// ApplyPatch composes a pending patch's ops onto the note body, saves and
// re-indexes the note, and marks the patch applied. A body that changed
// since generation fails with ErrConflict: the ops reference the snapshot
// the patch was computed against and must not compose onto anything else.
func (s *Service) ApplyPatch(_ context.Context, id string) (*NoteDetail, error) {
	p, err := s.db.GetPatch(id)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, apperr.ErrPatchFinal
	}

	raw, err := s.readNote(p.NotePath)
	if err != nil {
		return nil, err
	}
	prefix, body, _, err := bodyOf(p.NotePath, raw)
	if err != nil {
		return nil, err
	}
	if checksum.Sum([]byte(body)) != p.SnapshotChecksum {
		return nil, apperr.ErrConflict
	}

	newRaw := []byte(prefix + patch.Apply(body, p.Ops))
	if err := s.store.Write(p.NotePath, newRaw); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p.NotePath, newRaw); err != nil {
		return nil, err
	}
	if err := s.db.SetPatchStatus(id, patch.StatusApplied); err != nil {
		return nil, err
	}
	p.Status = patch.StatusApplied

	s.logger.Info("patch applied", slog.String("id", id), slog.String("note", p.NotePath))
	s.publishPatch("patch.applied", p)
	return s.buildNoteDetail(p.NotePath, newRaw)
}

// RejectPatch marks a pending patch rejected. The note is untouched.
func (s *Service) RejectPatch(_ context.Context, id string) error {
	p, err := s.db.GetPatch(id)
	if err != nil {
		return err
	}
	if err := s.db.SetPatchStatus(id, patch.StatusRejected); err != nil {
		return err
	}
	p.Status = patch.StatusRejected

	s.logger.Info("patch rejected", slog.String("id", id), slog.String("note", p.NotePath))
	s.publishPatch("patch.rejected", p)
	return nil
}

// GetPatch returns one stored patch.
func (s *Service) GetPatch(_ context.Context, id string) (*patch.Patch, error) {
	return s.db.GetPatch(id)
}

// ListPatches returns stored patches, newest first, optionally filtered by
// note path and status.
func (s *Service) ListPatches(_ context.Context, notePath string, status patch.Status) ([]*patch.Patch, error) {
	return s.db.ListPatches(notePath, status)
}

func (s *Service) publishPatch(kind string, p *patch.Patch) {
	if s.events != nil {
		s.events.PublishPatchEvent(kind, p)
	}
}
