package usecases

import (
	"fmt"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

const (
	// ZoomStep is how much one zoom action changes the latitude span.
	ZoomStep = 0.03

	MinLatitudeDelta = 0.0
	MaxLatitudeDelta = 1.0

	DefaultLatitude      = 37.78825
	DefaultLongitude     = -122.4324
	DefaultLatitudeDelta = 0.0922
)

// Viewport applies zoom and recenter actions to a region. The aspect ratio is
// fixed when the screen mounts and keeps longitude zoom proportional to
// latitude zoom.
type Viewport struct {
	aspectRatio float64
}

// NewViewport creates a Viewport for a screen of the given size.
func NewViewport(width, height float64) (*Viewport, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("screen size must be positive, got %gx%g", width, height)
	}
	return &Viewport{aspectRatio: width / height}, nil
}

// AspectRatio returns width / height.
func (v *Viewport) AspectRatio() float64 {
	return v.aspectRatio
}

// Region builds a region centered on c with the given latitude span.
func (v *Viewport) Region(c domain.Coordinate, latitudeDelta float64) domain.Region {
	return domain.Region{
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		LatitudeDelta:  latitudeDelta,
		LongitudeDelta: latitudeDelta * v.aspectRatio,
	}
}

// DefaultRegion is the region shown before the device location is known.
func (v *Viewport) DefaultRegion() domain.Region {
	return v.Region(domain.Coordinate{Latitude: DefaultLatitude, Longitude: DefaultLongitude}, DefaultLatitudeDelta)
}

// ZoomIn narrows the span by ZoomStep. It reports false and returns r
// unchanged when the span would drop below MinLatitudeDelta.
func (v *Viewport) ZoomIn(r domain.Region) (domain.Region, bool) {
	return v.zoom(r, -ZoomStep)
}

// ZoomOut widens the span by ZoomStep. It reports false and returns r
// unchanged when the span would exceed MaxLatitudeDelta.
func (v *Viewport) ZoomOut(r domain.Region) (domain.Region, bool) {
	return v.zoom(r, ZoomStep)
}

func (v *Viewport) zoom(r domain.Region, step float64) (domain.Region, bool) {
	delta := r.LatitudeDelta + step
	if delta < MinLatitudeDelta || delta > MaxLatitudeDelta {
		return r, false
	}
	return v.Region(r.Center(), delta), true
}

// Recenter moves the region to c keeping its span.
func (v *Viewport) Recenter(r domain.Region, c domain.Coordinate) domain.Region {
	r.Latitude = c.Latitude
	r.Longitude = c.Longitude
	return r
}
