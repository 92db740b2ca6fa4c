package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// FetchResult is one completed read of the mark list. Seq orders fetches by
// the time they started.
type FetchResult struct {
	Seq   uint64
	Marks []domain.Mark
}

// MarkSyncService reads and writes marks against the remote mark service.
// Failures are logged and returned; nothing is retried.
type MarkSyncService struct {
	remote ports.MarkRemote
	seq    atomic.Uint64
}

// NewMarkSyncService creates a new MarkSyncService.
func NewMarkSyncService(remote ports.MarkRemote) *MarkSyncService {
	return &MarkSyncService{remote: remote}
}

// Fetch reads the full mark list.
func (s *MarkSyncService) Fetch(ctx context.Context) (FetchResult, error) {
	seq := s.seq.Add(1)
	marks, err := s.remote.FetchMarks(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "fetch marks cancelled", "seq", seq, "error", err)
		} else {
			slog.WarnContext(ctx, "fetch marks failed", "seq", seq, "error", err)
		}
		return FetchResult{Seq: seq}, fmt.Errorf("fetch marks: %w", err)
	}
	if marks == nil {
		marks = []domain.Mark{}
	}
	return FetchResult{Seq: seq, Marks: marks}, nil
}

// Submit posts a new mark and, once the service accepts it, fetches the list
// exactly once. There is no local insert: the mark shows up only through the
// refetch.
func (s *MarkSyncService) Submit(ctx context.Context, c domain.Coordinate, message string) (FetchResult, error) {
	if !c.Valid() {
		return FetchResult{}, fmt.Errorf("submit mark: %w: %+v", domain.ErrInvalidCoordinate, c)
	}
	if err := s.remote.SubmitMark(ctx, c, message); err != nil {
		slog.WarnContext(ctx, "submit mark failed", "latitude", c.Latitude, "longitude", c.Longitude, "error", err)
		return FetchResult{}, fmt.Errorf("submit mark: %w", err)
	}
	return s.Fetch(ctx)
}
