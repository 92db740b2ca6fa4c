package usecases

import "github.com/samirrijal/pinmap/internal/core/domain"

// The functions below are the only way screen state changes. Each takes the
// current state and returns the next one without side effects.

// InitialState is the state at mount.
func InitialState(v *Viewport) domain.ScreenState {
	return domain.ScreenState{Region: v.DefaultRegion()}
}

func ZoomedIn(s domain.ScreenState, v *Viewport) (domain.ScreenState, bool) {
	r, ok := v.ZoomIn(s.Region)
	s.Region = r
	return s, ok
}

func ZoomedOut(s domain.ScreenState, v *Viewport) (domain.ScreenState, bool) {
	r, ok := v.ZoomOut(s.Region)
	s.Region = r
	return s, ok
}

// Recentered applies a device position and clears any location error.
func Recentered(s domain.ScreenState, v *Viewport, pos domain.Coordinate) domain.ScreenState {
	s.Region = v.Recenter(s.Region, pos)
	s.ErrorMessage = ""
	return s
}

func LocationFailed(s domain.ScreenState, message string) domain.ScreenState {
	s.ErrorMessage = message
	return s
}

// MarksFetched replaces the collection wholesale.
func MarksFetched(s domain.ScreenState, marks []domain.Mark) domain.ScreenState {
	s.Marks = marks
	return s
}

// DialogOpened starts composing a mark at c.
func DialogOpened(s domain.ScreenState, c domain.Coordinate) domain.ScreenState {
	s.DialogOpen = true
	s.Pending = &domain.PendingMark{Coordinate: c}
	return s
}

// PendingMessageChanged updates the note being typed. It is a no-op when the
// dialog is closed.
func PendingMessageChanged(s domain.ScreenState, message string) domain.ScreenState {
	if s.Pending == nil {
		return s
	}
	p := *s.Pending
	p.Message = message
	s.Pending = &p
	return s
}

// DialogClosed discards the pending mark, on submit and on cancel alike.
func DialogClosed(s domain.ScreenState) domain.ScreenState {
	s.DialogOpen = false
	s.Pending = nil
	return s
}
