package convert

import (
	"testing"
	"time"

	"github.com/pinmap/pinstate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPositionToGeoJSON(t *testing.T) {
	data := positionToGeoJSON(core.Position{Lat: 48.8584, Lng: 2.2945})

	assert.JSONEq(t, `{"type":"Point","coordinates":[2.2945,48.8584]}`, string(data))
}

func TestGeoJSONToPosition(t *testing.T) {
	tests := []struct {
		name string
		in   datatypes.JSON
		want core.Position
	}{
		{"point", datatypes.JSON(`{"type":"Point","coordinates":[2.2945,48.8584]}`), core.Position{Lat: 48.8584, Lng: 2.2945}},
		{"empty", nil, core.Position{}},
		{"garbage", datatypes.JSON(`{"oops"`), core.Position{}},
		{"empty point", datatypes.JSON(`{"type":"Point","coordinates":[]}`), core.Position{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geoJSONToPosition(tt.in))
		})
	}
}

func TestTransitionRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := core.Transition{
		ID:          7,
		SessionID:   "2f1c8d0e-0000-4000-8000-000000000000",
		Time:        now,
		MarkerIndex: 2,
		Position:    core.Position{Lat: 1.5, Lng: -3.25},
		Cause:       core.CauseSpiderfy,
		State:       "spiderfied",
		GroupState:  "spiderfied",
		ZIndex:      20000,
		LabelClass:  "marker-point spiderfied",
		Flags:       []string{"spiderfied"},
	}

	m := CoreToTransition(in)
	assert.Equal(t, "spiderfy", m.Cause)
	assert.Equal(t, datatypes.JSONSlice[string]{"spiderfied"}, m.Flags)

	assert.Equal(t, in, TransitionToCore(m))
}

func TestCoreToTransition_NilFlags(t *testing.T) {
	m := CoreToTransition(core.Transition{Cause: core.CauseRender})

	require.NotNil(t, m.Flags)
	assert.Empty(t, m.Flags)
}

func TestSessionConversion(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open := CoreToSession(core.Session{ID: "s1", StartedAt: start, Source: "script.json", Markers: 4})
	assert.Nil(t, open.EndedAt)
	assert.Equal(t, "script.json", open.Source)

	closed := CoreToSession(core.Session{ID: "s1", StartedAt: start, EndedAt: start.Add(time.Minute)})
	require.NotNil(t, closed.EndedAt)
	assert.Equal(t, start.Add(time.Minute), SessionToCore(closed).EndedAt)
	assert.True(t, SessionToCore(open).EndedAt.IsZero())
}
