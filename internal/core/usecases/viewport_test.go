package usecases_test

import (
	"math"
	"testing"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

const eps = 1e-9

func newViewport(t *testing.T) *usecases.Viewport {
	t.Helper()
	v, err := usecases.NewViewport(1080, 1920)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func assertAspect(t *testing.T, v *usecases.Viewport, r domain.Region) {
	t.Helper()
	want := r.LatitudeDelta * v.AspectRatio()
	if math.Abs(r.LongitudeDelta-want) > eps {
		t.Errorf("longitudeDelta %f != latitudeDelta*aspect %f", r.LongitudeDelta, want)
	}
}

func TestNewViewport_RejectsEmptyScreen(t *testing.T) {
	if _, err := usecases.NewViewport(0, 100); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := usecases.NewViewport(100, -1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestViewport_DefaultRegion(t *testing.T) {
	v := newViewport(t)
	r := v.DefaultRegion()
	if r.Latitude != usecases.DefaultLatitude || r.Longitude != usecases.DefaultLongitude {
		t.Errorf("unexpected center %f,%f", r.Latitude, r.Longitude)
	}
	if r.LatitudeDelta != usecases.DefaultLatitudeDelta {
		t.Errorf("expected delta %f, got %f", usecases.DefaultLatitudeDelta, r.LatitudeDelta)
	}
	assertAspect(t, v, r)
}

func TestViewport_ZoomInThenOutRestores(t *testing.T) {
	v := newViewport(t)
	start := v.DefaultRegion()

	in, ok := v.ZoomIn(start)
	if !ok {
		t.Fatal("zoom in rejected")
	}
	assertAspect(t, v, in)

	out, ok := v.ZoomOut(in)
	if !ok {
		t.Fatal("zoom out rejected")
	}
	assertAspect(t, v, out)

	if math.Abs(out.LatitudeDelta-start.LatitudeDelta) > eps {
		t.Errorf("expected delta %f, got %f", start.LatitudeDelta, out.LatitudeDelta)
	}
	if out.Center() != start.Center() {
		t.Errorf("zoom moved the center: %+v", out.Center())
	}
}

func TestViewport_ZoomInClampsAtZero(t *testing.T) {
	v := newViewport(t)
	r := v.DefaultRegion()

	applied := 0
	for i := 0; i < 100; i++ {
		next, ok := v.ZoomIn(r)
		if ok {
			applied++
		} else if next != r {
			t.Fatalf("rejected zoom changed the region: %+v -> %+v", r, next)
		}
		r = next
		if r.LatitudeDelta < 0 {
			t.Fatalf("latitudeDelta went below 0: %f", r.LatitudeDelta)
		}
		assertAspect(t, v, r)
	}
	// 0.0922 -> 0.0622 -> 0.0322 -> 0.0022, then rejected
	if applied != 3 {
		t.Errorf("expected 3 applied zooms, got %d", applied)
	}
}

func TestViewport_ZoomOutClampsAtOne(t *testing.T) {
	v := newViewport(t)
	r := v.DefaultRegion()

	applied := 0
	for i := 0; i < 100; i++ {
		var ok bool
		r, ok = v.ZoomOut(r)
		if ok {
			applied++
		}
		if r.LatitudeDelta > 1 {
			t.Fatalf("latitudeDelta went above 1: %f", r.LatitudeDelta)
		}
		assertAspect(t, v, r)
	}
	if applied != 30 {
		t.Errorf("expected 30 applied zooms, got %d", applied)
	}
}

func TestViewport_MixedSequenceStaysInBounds(t *testing.T) {
	v := newViewport(t)
	r := v.DefaultRegion()
	ops := []bool{true, true, true, true, true, false, false, true, false, false, false, true}
	for i := 0; i < 200; i++ {
		if ops[i%len(ops)] {
			r, _ = v.ZoomIn(r)
		} else {
			r, _ = v.ZoomOut(r)
		}
		if r.LatitudeDelta < 0 || r.LatitudeDelta > 1 {
			t.Fatalf("step %d: latitudeDelta out of bounds: %f", i, r.LatitudeDelta)
		}
		assertAspect(t, v, r)
	}
}

func TestViewport_RecenterKeepsSpan(t *testing.T) {
	v := newViewport(t)
	start, _ := v.ZoomIn(v.DefaultRegion())
	r := v.Recenter(start, domain.Coordinate{Latitude: 43.26, Longitude: -2.93})
	if r.Latitude != 43.26 || r.Longitude != -2.93 {
		t.Errorf("unexpected center %+v", r.Center())
	}
	if r.LatitudeDelta != start.LatitudeDelta || r.LongitudeDelta != start.LongitudeDelta {
		t.Error("recenter changed the span")
	}
}

func TestScreenState_VisibleMarks(t *testing.T) {
	v := newViewport(t)
	s := usecases.InitialState(v)
	s = usecases.MarksFetched(s, []domain.Mark{
		{Key: "in", Coordinate: domain.Coordinate{Latitude: usecases.DefaultLatitude, Longitude: usecases.DefaultLongitude}},
		{Key: "out", Coordinate: domain.Coordinate{Latitude: 0, Longitude: 0}},
	})
	visible := s.VisibleMarks()
	if len(visible) != 1 || visible[0].Key != "in" {
		t.Errorf("expected only the centered mark visible, got %+v", visible)
	}
}

func TestScreenState_DialogReducers(t *testing.T) {
	v := newViewport(t)
	s := usecases.InitialState(v)

	// Typing with no dialog open is ignored.
	s = usecases.PendingMessageChanged(s, "lost")
	if s.Pending != nil {
		t.Fatal("pending mark created without dialog")
	}

	c := domain.Coordinate{Latitude: 1, Longitude: 2}
	s = usecases.DialogOpened(s, c)
	if !s.DialogOpen || s.Pending == nil || s.Pending.Coordinate != c {
		t.Fatalf("dialog not opened at %+v: %+v", c, s)
	}

	before := s
	s = usecases.PendingMessageChanged(s, "meet here")
	if s.Pending.Message != "meet here" {
		t.Errorf("expected message to be set, got %q", s.Pending.Message)
	}
	if before.Pending.Message != "" {
		t.Error("reducer mutated the previous state")
	}

	s = usecases.DialogClosed(s)
	if s.DialogOpen || s.Pending != nil {
		t.Error("dialog not closed")
	}
}
