// pkg/core/point.go
package core

// Position is a WGS84 coordinate in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is the alternate coordinate shape some feeds deliver.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointRecord is one input point. It is never mutated after it is handed to
// the coordinator.
type PointRecord struct {
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Location     *Location `json:"location,omitempty"`
	HoverContent string    `json:"hoverData,omitempty"`
	ClickContent string    `json:"clickData,omitempty"`
}

// Position resolves the record's coordinates. A zero Lat or Lng falls back to
// the matching Location field.
func (p PointRecord) Position() Position {
	lat, lng := p.Lat, p.Lng
	if p.Location != nil {
		if lat == 0 {
			lat = p.Location.Latitude
		}
		if lng == 0 {
			lng = p.Location.Longitude
		}
	}
	return Position{Lat: lat, Lng: lng}
}
