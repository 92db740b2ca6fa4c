package main

import (
	"fmt"
	"log/slog"

	"github.com/samirrijal/pinmap/internal/adapters/geo"
	"github.com/samirrijal/pinmap/internal/adapters/markapi"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/config"
)

// buildScreen wires a screen from config. cleanup releases the geolocator.
func buildScreen(cfg *config.Config) (*usecases.ScreenService, func(), error) {
	viewport, err := usecases.NewViewport(cfg.Screen.Width, cfg.Screen.Height)
	if err != nil {
		return nil, nil, err
	}

	locator, cleanup, err := newGeolocator(cfg.Geolocation)
	if err != nil {
		return nil, nil, err
	}

	remote := markapi.NewClient(cfg.Remote.BaseURL, markapi.WithTimeout(cfg.Remote.Timeout))
	screen := usecases.NewScreenService(viewport, usecases.NewMarkSyncService(remote), locator)
	return screen, cleanup, nil
}

func newGeolocator(cfg config.GeolocationConfig) (ports.Geolocator, func(), error) {
	switch cfg.Provider {
	case config.ProviderGeoIP:
		g, err := geo.NewGeoIP(cfg.GeoIPDB, cfg.IP, cfg.Permission)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				slog.Warn("close geoip database", "error", err)
			}
		}, nil
	case config.ProviderStatic:
		return &geo.Static{
			Position: domain.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
			Granted:  cfg.Permission,
			Emulator: cfg.Emulator,
		}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}
}
