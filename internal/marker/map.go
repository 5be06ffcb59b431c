package marker

import (
	"github.com/pinmap/pinstate/internal/dom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/samber/lo"
)

// Map hosts markers inside a container element.
type Map struct {
	doc     *dom.Document
	bus     *events.Bus
	div     *dom.Element
	markers []*Marker
}

// NewMap creates a map container with the given id under the document body.
func NewMap(doc *dom.Document, bus *events.Bus, id string) *Map {
	div := doc.CreateElement("div")
	div.SetAttr("id", id)
	div.SetClassName("map")
	doc.Body().AppendChild(div)
	return &Map{doc: doc, bus: bus, div: div}
}

// NewMarker creates a marker at pos and attaches it to the map.
func (m *Map) NewMarker(pos core.Position, opts Options) *Marker {
	mk := &Marker{
		bus:       m.bus,
		label:     m.doc.CreateElement("div"),
		position:  pos,
		baseClass: BaseClass,
		icon:      Icon{Path: SymbolCircle, Scale: 1},
	}
	mk.SetOptions(opts)
	mk.SetMap(m)
	return mk
}

// Div returns the map container element.
func (m *Map) Div() *dom.Element { return m.div }

// Document returns the document the map renders into.
func (m *Map) Document() *dom.Document { return m.doc }

// Bus returns the event bus markers on this map dispatch through.
func (m *Map) Bus() *events.Bus { return m.bus }

// Markers returns the attached markers in attach order.
func (m *Map) Markers() []*Marker {
	return append([]*Marker(nil), m.markers...)
}

// AddListener subscribes h to map-level events such as "click".
func (m *Map) AddListener(name string, h events.HandlerFunc) *events.Listener {
	return m.bus.AddListener(m, name, h)
}

// Trigger fires a map-level event.
func (m *Map) Trigger(name string) {
	m.bus.Trigger(m, name, m.div)
}

func (m *Map) attach(mk *Marker) {
	m.markers = append(m.markers, mk)
}

func (m *Map) detach(mk *Marker) {
	m.markers = lo.Without(m.markers, mk)
}
