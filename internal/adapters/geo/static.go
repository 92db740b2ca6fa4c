// Package geo provides device location sources for the map screen.
package geo

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Static reports a fixed position. Emulator makes every permission request
// fail with domain.ErrPlatformUnsupported, like a device with no location stack.
type Static struct {
	Position domain.Coordinate
	Granted  bool
	Emulator bool
}

// RequestPermission implements ports.Geolocator.
func (s *Static) RequestPermission(ctx context.Context) (bool, error) {
	if s.Emulator {
		return false, domain.ErrPlatformUnsupported
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Granted, nil
}

// CurrentPosition implements ports.Geolocator.
func (s *Static) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	return s.Position, nil
}
