package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// ScreenService owns the map screen state and runs every action against it.
// It is safe for concurrent use.
type ScreenService struct {
	viewport *Viewport
	marks    *MarkSyncService
	geo      ports.Geolocator

	mu             sync.Mutex
	state          domain.ScreenState
	appliedSeq     uint64
	recenterGen    uint64
	recenterCancel context.CancelFunc
}

// NewScreenService creates a screen showing the default region.
func NewScreenService(viewport *Viewport, marks *MarkSyncService, geo ports.Geolocator) *ScreenService {
	return &ScreenService{
		viewport: viewport,
		marks:    marks,
		geo:      geo,
		state:    InitialState(viewport),
	}
}

// State returns a snapshot of the current state.
func (s *ScreenService) State() domain.ScreenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Mount acquires the device location, which also loads the marks.
func (s *ScreenService) Mount(ctx context.Context) error {
	return s.Recenter(ctx)
}

// ZoomIn reports whether the zoom was applied.
func (s *ScreenService) ZoomIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := ZoomedIn(s.state, s.viewport)
	s.state = next
	return ok
}

// ZoomOut reports whether the zoom was applied.
func (s *ScreenService) ZoomOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := ZoomedOut(s.state, s.viewport)
	s.state = next
	return ok
}

// Recenter moves the region to the device position and then refetches marks.
// Starting a recenter cancels the one in flight; a superseded recenter never
// touches state and returns domain.ErrSuperseded. A recenter cancelled through
// ctx returns the context's error.
func (s *ScreenService) Recenter(ctx context.Context) error {
	ctx, gen := s.beginRecenter(ctx)
	defer s.endRecenter(gen)

	granted, err := s.geo.RequestPermission(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPlatformUnsupported) {
			if cerr := s.commitRecenter(ctx, gen, func(st domain.ScreenState) domain.ScreenState {
				return LocationFailed(st, domain.MsgPlatformUnsupported)
			}); cerr != nil {
				return cerr
			}
			return err
		}
		return s.recenterErr(ctx, gen, fmt.Errorf("request permission: %w", err))
	}
	if !granted {
		if cerr := s.commitRecenter(ctx, gen, func(st domain.ScreenState) domain.ScreenState {
			return LocationFailed(st, domain.MsgPermissionDenied)
		}); cerr != nil {
			return cerr
		}
		return domain.ErrPermissionDenied
	}

	pos, err := s.geo.CurrentPosition(ctx)
	if errors.Is(err, domain.ErrLocationUnavailable) {
		if cerr := s.commitRecenter(ctx, gen, func(st domain.ScreenState) domain.ScreenState {
			return LocationFailed(st, domain.MsgLocationUnavailable)
		}); cerr != nil {
			return cerr
		}
		return err
	}
	if err != nil {
		return s.recenterErr(ctx, gen, fmt.Errorf("current position: %w", err))
	}

	if err := s.commitRecenter(ctx, gen, func(st domain.ScreenState) domain.ScreenState {
		return Recentered(st, s.viewport, pos)
	}); err != nil {
		return err
	}
	slog.DebugContext(ctx, "recentered", "latitude", pos.Latitude, "longitude", pos.Longitude)

	res, err := s.marks.Fetch(ctx)
	if err != nil {
		// Fetch has already logged the failure.
		if s.superseded(gen) {
			return domain.ErrSuperseded
		}
		return err
	}
	return s.commitRecenterMarks(ctx, gen, res)
}

// FetchMarks replaces the mark collection with the service's list. On
// failure the previous collection stays. A result is dropped if a fetch that
// started later has already been applied.
func (s *ScreenService) FetchMarks(ctx context.Context) error {
	res, err := s.marks.Fetch(ctx)
	if err != nil {
		return err
	}
	s.applyMarks(res)
	return nil
}

// OpenDialog starts composing a mark at the pressed coordinate.
func (s *ScreenService) OpenDialog(c domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = DialogOpened(s.state, c)
}

// SetPendingMessage updates the note being composed.
func (s *ScreenService) SetPendingMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = PendingMessageChanged(s.state, message)
}

// CancelDialog discards the pending mark.
func (s *ScreenService) CancelDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = DialogClosed(s.state)
}

// SubmitPending sends the pending mark. The dialog closes before the request
// goes out, whatever the outcome.
func (s *ScreenService) SubmitPending(ctx context.Context) error {
	s.mu.Lock()
	pending := s.state.Pending
	s.state = DialogClosed(s.state)
	s.mu.Unlock()

	if pending == nil {
		return domain.ErrNoPendingMark
	}
	return s.submit(ctx, *pending)
}

// SubmitMark opens the dialog at c with message and submits it at once.
func (s *ScreenService) SubmitMark(ctx context.Context, c domain.Coordinate, message string) error {
	s.OpenDialog(c)
	s.SetPendingMessage(message)
	return s.SubmitPending(ctx)
}

func (s *ScreenService) submit(ctx context.Context, p domain.PendingMark) error {
	res, err := s.marks.Submit(ctx, p.Coordinate, p.Message)
	if err != nil {
		return err
	}
	s.applyMarks(res)
	return nil
}

func (s *ScreenService) applyMarks(res FetchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyMarksLocked(res)
}

func (s *ScreenService) applyMarksLocked(res FetchResult) {
	if res.Seq < s.appliedSeq {
		slog.Debug("dropping stale mark list", "seq", res.Seq, "applied", s.appliedSeq)
		return
	}
	s.appliedSeq = res.Seq
	s.state = MarksFetched(s.state, res.Marks)
}

func (s *ScreenService) beginRecenter(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recenterCancel != nil {
		s.recenterCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.recenterGen++
	s.recenterCancel = cancel
	return ctx, s.recenterGen
}

func (s *ScreenService) endRecenter(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recenterGen == gen && s.recenterCancel != nil {
		s.recenterCancel()
		s.recenterCancel = nil
	}
}

// commitRecenter applies fn only if gen is still the latest recenter and its
// context is live. It returns domain.ErrSuperseded when a newer recenter has
// started and the context's error when the caller cancelled.
func (s *ScreenService) commitRecenter(ctx context.Context, gen uint64, fn func(domain.ScreenState) domain.ScreenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.recenterGen {
		return domain.ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = fn(s.state)
	return nil
}

// commitRecenterMarks applies the refetch that closes a recenter, under the
// same rules as commitRecenter and the start-order rule of applyMarks.
func (s *ScreenService) commitRecenterMarks(ctx context.Context, gen uint64, res FetchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.recenterGen {
		return domain.ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.applyMarksLocked(res)
	return nil
}

// recenterErr reports a failed step. Failures caused by a newer recenter
// become domain.ErrSuperseded and are not logged.
func (s *ScreenService) recenterErr(ctx context.Context, gen uint64, err error) error {
	if s.superseded(gen) {
		return domain.ErrSuperseded
	}
	if ctx.Err() != nil {
		slog.DebugContext(ctx, "recenter cancelled", "error", err)
		return err
	}
	slog.WarnContext(ctx, "recenter failed", "error", err)
	return err
}

func (s *ScreenService) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.recenterGen
}
