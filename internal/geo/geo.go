package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/wroge/wgs84"
)

// Marker positions arrive as EPSG:4326 degrees. Overlap checks and leg layout
// happen in EPSG:3857 metres, which map linearly onto web-map pixels at a
// given zoom.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// tileResolution is metres per pixel at zoom 0 for 256px web-mercator tiles.
const tileResolution = 156543.03392804097

var (
	to3857   = wgs84.EPSG().Transform(4326, 3857)
	from3857 = wgs84.EPSG().Transform(3857, 4326)
)

// Project converts a WGS84 position into an EPSG:3857 point.
func Project(p core.Position) geom.Point {
	x, y, _ := to3857(p.Lng, p.Lat, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

// Unproject converts EPSG:3857 metres back into a WGS84 position.
func Unproject(x, y float64) core.Position {
	lng, lat, _ := from3857(x, y, 0)
	return core.Position{Lat: lat, Lng: lng}
}

// Resolution returns metres per pixel at zoom.
func Resolution(zoom float64) float64 {
	return tileResolution / math.Pow(2, zoom)
}

// PixelDistance returns the on-screen distance between a and b at zoom.
func PixelDistance(a, b core.Position, zoom float64) float64 {
	d, ok := geom.Distance(Project(a).AsGeometry(), Project(b).AsGeometry())
	if !ok {
		return math.Inf(1)
	}
	return d / Resolution(zoom)
}

// PositionFromString parses "lat,lng" into a core.Position.
func PositionFromString(coords string) (core.Position, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return core.Position{}, ErrInvalidCoordinates
	}
	return core.Position{Lat: lat, Lng: lng}, nil
}
