package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pinmap/pinstate/pkg/core"
)

// Leg builds the EPSG:3857 line string from a spiderfy centre to a marker's
// fanned-out position.
func Leg(from, to core.Position) (geom.LineString, error) {
	a, okA := Project(from).XY()
	b, okB := Project(to).XY()
	if !okA || !okB {
		return geom.LineString{}, fmt.Errorf("leg endpoint: %w", ErrInvalidCoordinates)
	}
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// LegPixels returns the on-screen length of a leg at zoom.
func LegPixels(ls geom.LineString, zoom float64) float64 {
	return ls.Length() / Resolution(zoom)
}
