package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/ansuz/internal/analyzer"
)

// AnalyzeNote runs the idle analyzer against the note's current body. It
// returns nil when the body is unchanged since the last analysis of that
// note; the service holds the per-note fingerprints, so the skip works
// across watcher and API callers alike.
func (s *Service) AnalyzeNote(ctx context.Context, path string) (*analyzer.Result, error) {
	raw, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	_, body, _, err := bodyOf(path, raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.lastAnalyzed[path]
	s.mu.Unlock()

	res := s.analyzer.Analyze(ctx, body, prev)
	if res == nil {
		return nil, nil
	}

	s.mu.Lock()
	s.lastAnalyzed[path] = res.ContentHash
	s.mu.Unlock()

	s.logger.Debug("note analyzed",
		slog.String("note", path),
		slog.Int("suggestions", len(res.Suggestions)))
	return res, nil
}
