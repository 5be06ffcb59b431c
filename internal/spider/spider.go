// Package spider fans out markers that overlap on screen so each can be
// clicked, and reports the fan-out to listeners as spiderfy and unspiderfy
// events.
package spider

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/internal/geo"
	"github.com/pinmap/pinstate/internal/marker"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/samber/lo"
)

// Event names delivered to listeners.
const (
	EventClick      = "click"
	EventSpiderfy   = "spiderfy"
	EventUnspiderfy = "unspiderfy"
)

// Config mirrors the usual spiderfier options. Distances are in pixels.
type Config struct {
	NearbyDistance         float64
	KeepSpiderfied         bool
	MarkersWontMove        bool
	MarkersWontHide        bool
	LegWeight              float64
	UsualLegZIndex         int
	Zoom                   float64
	CircleFootSeparation   float64
	CircleStartAngle       float64
	CircleSpiralSwitchover int
	SpiralFootSeparation   float64
	SpiralLengthStart      float64
	SpiralLengthFactor     float64
}

// DefaultConfig returns the defaults the map view runs with.
func DefaultConfig() Config {
	return Config{
		NearbyDistance:         10,
		KeepSpiderfied:         true,
		MarkersWontMove:        true,
		MarkersWontHide:        true,
		LegWeight:              3,
		UsualLegZIndex:         25000,
		Zoom:                   15,
		CircleFootSeparation:   23,
		CircleStartAngle:       math.Pi / 6,
		CircleSpiralSwitchover: 9,
		SpiralFootSeparation:   26,
		SpiralLengthStart:      11,
		SpiralLengthFactor:     4,
	}
}

// Event is delivered to spiderfier listeners. For click events Markers holds
// the clicked marker; for spiderfy and unspiderfy it holds the group and
// Others every marker outside it.
type Event struct {
	Name    string
	Markers []*marker.Marker
	Others  []*marker.Marker
	Source  events.Event
}

// Listener handles a spiderfier event.
type Listener func(Event)

// Leg connects a fanned-out marker to the group centre.
type Leg struct {
	Marker *marker.Marker
	Line   geom.LineString
	Weight float64
	ZIndex int
}

// Spiderfier tracks the markers registered with it and the group currently
// fanned out.
type Spiderfier struct {
	m   *marker.Map
	cfg Config

	markers        []*marker.Marker
	clickListeners map[*marker.Marker]*events.Listener
	listeners      map[string][]Listener
	mapListener    *events.Listener

	// usual positions of the fanned-out markers
	spiderfied map[*marker.Marker]core.Position
	legs       []Leg
}

// New creates a Spiderfier for markers on m. A click on the map collapses any
// fanned-out group.
func New(m *marker.Map, cfg Config) *Spiderfier {
	s := &Spiderfier{
		m:              m,
		cfg:            cfg,
		clickListeners: make(map[*marker.Marker]*events.Listener),
		listeners:      make(map[string][]Listener),
		spiderfied:     make(map[*marker.Marker]core.Position),
	}
	s.mapListener = m.AddListener("click", func(e events.Event) {
		s.unspiderfy(e)
	})
	return s
}

// AddMarker registers mk. Registering a marker twice is a no-op.
func (s *Spiderfier) AddMarker(mk *marker.Marker) {
	if _, ok := s.clickListeners[mk]; ok {
		return
	}
	s.markers = append(s.markers, mk)
	s.clickListeners[mk] = mk.AddListener("click", func(e events.Event) {
		s.markerClick(mk, e)
	})
}

// RemoveMarker unregisters mk and drops the listener AddMarker installed.
func (s *Spiderfier) RemoveMarker(mk *marker.Marker) {
	l, ok := s.clickListeners[mk]
	if !ok {
		return
	}
	if _, fanned := s.spiderfied[mk]; fanned {
		s.unspiderfy(events.Event{Name: "remove"})
	}
	l.Remove()
	delete(s.clickListeners, mk)
	s.markers = lo.Without(s.markers, mk)
}

// Markers returns the registered markers.
func (s *Spiderfier) Markers() []*marker.Marker {
	return append([]*marker.Marker(nil), s.markers...)
}

// AddListener subscribes l to click, spiderfy or unspiderfy events.
func (s *Spiderfier) AddListener(name string, l Listener) {
	s.listeners[name] = append(s.listeners[name], l)
}

// IsSpiderfied reports whether mk is part of the fanned-out group.
func (s *Spiderfier) IsSpiderfied(mk *marker.Marker) bool {
	_, ok := s.spiderfied[mk]
	return ok
}

// Spiderfied returns the fanned-out group in registration order.
func (s *Spiderfier) Spiderfied() []*marker.Marker {
	return lo.Filter(s.markers, func(mk *marker.Marker, _ int) bool {
		return s.IsSpiderfied(mk)
	})
}

// Legs returns the legs of the fanned-out group.
func (s *Spiderfier) Legs() []Leg {
	return append([]Leg(nil), s.legs...)
}

// Unspiderfy collapses the fanned-out group, if any.
func (s *Spiderfier) Unspiderfy() {
	s.unspiderfy(events.Event{Name: EventUnspiderfy})
}

// Close detaches the map listener and every marker listener.
func (s *Spiderfier) Close() {
	for _, mk := range s.Markers() {
		s.RemoveMarker(mk)
	}
	s.mapListener.Remove()
}

func (s *Spiderfier) markerClick(mk *marker.Marker, e events.Event) {
	wasSpiderfied := s.IsSpiderfied(mk)
	if !(wasSpiderfied && s.cfg.KeepSpiderfied) {
		s.unspiderfy(e)
	}
	if wasSpiderfied {
		s.trigger(Event{Name: EventClick, Markers: []*marker.Marker{mk}, Source: e})
		return
	}

	nearby, others := s.partition(mk)
	if len(nearby) == 1 {
		s.trigger(Event{Name: EventClick, Markers: []*marker.Marker{mk}, Source: e})
		return
	}
	s.spiderfy(nearby, others, e)
}

// partition splits the visible markers into those within NearbyDistance of mk
// (including mk) and the rest.
func (s *Spiderfier) partition(mk *marker.Marker) (nearby, others []*marker.Marker) {
	visible := lo.Filter(s.markers, func(m *marker.Marker, _ int) bool {
		return m.Map() != nil
	})
	return lo.FilterReject(visible, func(m *marker.Marker, _ int) bool {
		return geo.PixelDistance(m.Position(), mk.Position(), s.cfg.Zoom) < s.cfg.NearbyDistance
	})
}

func (s *Spiderfier) spiderfy(group, others []*marker.Marker, e events.Event) {
	centre := s.centre(group)
	var offsets []geom.XY
	if len(group) >= s.cfg.CircleSpiralSwitchover {
		offsets = s.spiralOffsets(len(group))
	} else {
		offsets = s.circleOffsets(len(group))
	}

	res := geo.Resolution(s.cfg.Zoom)
	centrePos := geo.Unproject(centre.X, centre.Y)
	for i, mk := range group {
		s.spiderfied[mk] = mk.Position()
		foot := geo.Unproject(centre.X+offsets[i].X*res, centre.Y+offsets[i].Y*res)
		if line, err := geo.Leg(centrePos, foot); err == nil {
			s.legs = append(s.legs, Leg{
				Marker: mk,
				Line:   line,
				Weight: s.cfg.LegWeight,
				ZIndex: s.cfg.UsualLegZIndex,
			})
		}
		mk.SetOptions(marker.Options{Position: &foot})
	}

	s.trigger(Event{Name: EventSpiderfy, Markers: group, Others: others, Source: e})
}

func (s *Spiderfier) unspiderfy(e events.Event) {
	if len(s.spiderfied) == 0 {
		return
	}
	group := s.Spiderfied()
	others := lo.Filter(s.markers, func(mk *marker.Marker, _ int) bool {
		return !s.IsSpiderfied(mk)
	})
	for _, mk := range group {
		usual := s.spiderfied[mk]
		mk.SetOptions(marker.Options{Position: &usual})
	}
	s.spiderfied = make(map[*marker.Marker]core.Position)
	s.legs = nil

	s.trigger(Event{Name: EventUnspiderfy, Markers: group, Others: others, Source: e})
}

func (s *Spiderfier) trigger(e Event) {
	for _, l := range append([]Listener(nil), s.listeners[e.Name]...) {
		l(e)
	}
}

// centre returns the mean EPSG:3857 position of the group.
func (s *Spiderfier) centre(group []*marker.Marker) geom.XY {
	var sum geom.XY
	for _, mk := range group {
		xy, _ := geo.Project(mk.Position()).XY()
		sum = sum.Add(xy)
	}
	return sum.Scale(1 / float64(len(group)))
}

// circleOffsets places count feet evenly on a circle, in pixels.
func (s *Spiderfier) circleOffsets(count int) []geom.XY {
	circumference := s.cfg.CircleFootSeparation * float64(2+count)
	legLength := circumference / (2 * math.Pi)
	angleStep := 2 * math.Pi / float64(count)
	out := make([]geom.XY, count)
	for i := range out {
		angle := s.cfg.CircleStartAngle + float64(i)*angleStep
		out[i] = geom.XY{X: legLength * math.Cos(angle), Y: legLength * math.Sin(angle)}
	}
	return out
}

// spiralOffsets places count feet on an outward spiral, in pixels.
func (s *Spiderfier) spiralOffsets(count int) []geom.XY {
	legLength := s.cfg.SpiralLengthStart
	angle := 0.0
	out := make([]geom.XY, count)
	for i := range out {
		angle += s.cfg.SpiralFootSeparation/legLength + float64(i)*0.0005
		out[i] = geom.XY{X: legLength * math.Cos(angle), Y: legLength * math.Sin(angle)}
		legLength += 2 * math.Pi * s.cfg.SpiralLengthFactor / angle
	}
	return out
}
