package domain

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies on the globe.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether c falls inside the box (edges included).
func (b Bounds) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// Region is a map viewport: a center plus the visible span in degrees.
type Region struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

// Center returns the region's center point.
func (r Region) Center() Coordinate {
	return Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Bounds returns the box visible on screen for this region.
func (r Region) Bounds() Bounds {
	halfLat := r.LatitudeDelta / 2
	halfLon := r.LongitudeDelta / 2
	return Bounds{
		MinLat: r.Latitude - halfLat,
		MinLon: r.Longitude - halfLon,
		MaxLat: r.Latitude + halfLat,
		MaxLon: r.Longitude + halfLon,
	}
}
