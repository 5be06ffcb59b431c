// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pinmap/pinstate/internal/model"
	"github.com/pinmap/pinstate/pkg/core"
	"gorm.io/datatypes"
)

// positionToGeoJSON encodes p as a GeoJSON point. Longitude comes first.
func positionToGeoJSON(p core.Position) datatypes.JSON {
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.Lng, Y: p.Lat}, Type: geom.DimXY})
	data, err := pt.MarshalJSON()
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// geoJSONToPosition decodes a GeoJSON point. Anything else yields the zero
// position.
func geoJSONToPosition(data datatypes.JSON) core.Position {
	if len(data) == 0 {
		return core.Position{}
	}
	var pt geom.Point
	if err := pt.UnmarshalJSON(data); err != nil {
		return core.Position{}
	}
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position{}
	}
	return core.Position{Lat: c.Y, Lng: c.X}
}

// CoreToTransition converts a core.Transition to a GORM model.Transition.
func CoreToTransition(t core.Transition) model.Transition {
	flags := datatypes.JSONSlice[string](t.Flags)
	if flags == nil {
		flags = datatypes.JSONSlice[string]{}
	}
	return model.Transition{
		ID:          t.ID,
		Time:        t.Time,
		SessionID:   t.SessionID,
		MarkerIndex: t.MarkerIndex,
		Cause:       string(t.Cause),
		State:       t.State,
		GroupState:  t.GroupState,
		ZIndex:      t.ZIndex,
		LabelClass:  t.LabelClass,
		Flags:       flags,
		Position:    positionToGeoJSON(t.Position),
	}
}

// TransitionToCore converts a GORM model.Transition back to a core.Transition.
func TransitionToCore(m model.Transition) core.Transition {
	return core.Transition{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Time:        m.Time,
		MarkerIndex: m.MarkerIndex,
		Position:    geoJSONToPosition(m.Position),
		Cause:       core.Cause(m.Cause),
		State:       m.State,
		GroupState:  m.GroupState,
		ZIndex:      m.ZIndex,
		LabelClass:  m.LabelClass,
		Flags:       []string(m.Flags),
	}
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	var ended *time.Time
	if !s.EndedAt.IsZero() {
		ended = &s.EndedAt
	}
	return model.Session{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		EndedAt:   ended,
		Source:    s.Source,
		Markers:   s.Markers,
	}
}

// SessionToCore converts a GORM model.Session back to a core.Session.
func SessionToCore(m model.Session) core.Session {
	s := core.Session{
		ID:        m.ID,
		StartedAt: m.StartedAt,
		Source:    m.Source,
		Markers:   m.Markers,
	}
	if m.EndedAt != nil {
		s.EndedAt = *m.EndedAt
	}
	return s
}
