package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// GeoIP locates the device by looking its public IP up in a MaxMind City database.
type GeoIP struct {
	db      *geoip2.Reader
	ip      net.IP
	granted bool
}

// NewGeoIP opens the MMDB file at dbPath. ip may carry a port.
func NewGeoIP(dbPath, ip string, granted bool) (*GeoIP, error) {
	host, _, err := net.SplitHostPort(ip)
	if err != nil {
		host = ip
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return nil, fmt.Errorf("geoip: invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return nil, fmt.Errorf("geoip: %s is not a public address", parsed)
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", dbPath, err)
	}
	return &GeoIP{db: db, ip: parsed, granted: granted}, nil
}

// RequestPermission implements ports.Geolocator.
func (g *GeoIP) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.granted, nil
}

// CurrentPosition implements ports.Geolocator.
func (g *GeoIP) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	record, err := g.db.City(g.ip)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geoip lookup %s: %w", g.ip, err)
	}
	// Unknown addresses come back as a zero record
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return domain.Coordinate{}, fmt.Errorf("%w: no record for %s", domain.ErrLocationUnavailable, g.ip)
	}
	return domain.Coordinate{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error {
	return g.db.Close()
}
