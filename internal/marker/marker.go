// Package marker renders labelled map markers. A marker's visible shape is its
// label element; the icon is kept invisible.
package marker

import (
	"strconv"

	"github.com/pinmap/pinstate/internal/dom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/pkg/core"
)

// SymbolCircle is the only icon path the renderer knows.
const SymbolCircle = "circle"

// Icon describes the marker icon.
type Icon struct {
	Path  string
	Scale float64
}

// Point is a pixel offset.
type Point struct {
	X, Y int
}

// Options is a partial marker configuration. Nil fields are left unchanged by
// SetOptions.
type Options struct {
	Position     *core.Position
	ZIndex       *int
	Flags        *Flags
	BaseClass    *string
	Icon         *Icon
	LabelAnchor  *Point
	Draggable    *bool
	HoverContent *string
	ClickContent *string
}

// Marker is a handle to one rendered marker. It is not safe for concurrent use.
type Marker struct {
	bus   *events.Bus
	m     *Map
	label *dom.Element

	position     core.Position
	zIndex       int
	flags        Flags
	baseClass    string
	icon         Icon
	labelAnchor  Point
	draggable    bool
	hoverContent string
	clickContent string
}

// SetOptions applies every non-nil field of o and re-renders the label.
func (mk *Marker) SetOptions(o Options) {
	if o.Position != nil {
		mk.position = *o.Position
	}
	if o.ZIndex != nil {
		mk.zIndex = *o.ZIndex
	}
	if o.Flags != nil {
		mk.flags = *o.Flags
	}
	if o.BaseClass != nil {
		mk.baseClass = *o.BaseClass
	}
	if o.Icon != nil {
		mk.icon = *o.Icon
	}
	if o.LabelAnchor != nil {
		mk.labelAnchor = *o.LabelAnchor
	}
	if o.Draggable != nil {
		mk.draggable = *o.Draggable
	}
	if o.HoverContent != nil {
		mk.hoverContent = *o.HoverContent
	}
	if o.ClickContent != nil {
		mk.clickContent = *o.ClickContent
	}
	mk.render()
}

// SetZIndex sets only the z-index.
func (mk *Marker) SetZIndex(z int) {
	mk.zIndex = z
	mk.render()
}

// AddListener subscribes h to name events on this marker.
func (mk *Marker) AddListener(name string, h events.HandlerFunc, opts ...events.Option) *events.Listener {
	return mk.bus.AddListener(mk, name, h, opts...)
}

// Trigger fires name on the marker with its label as the event target, the
// way a pointer event on the label would.
func (mk *Marker) Trigger(name string) {
	mk.bus.Trigger(mk, name, mk.label)
}

// SetMap attaches the marker to m, or detaches it when m is nil.
func (mk *Marker) SetMap(m *Map) {
	if mk.m == m {
		return
	}
	if mk.m != nil {
		mk.m.detach(mk)
		mk.label.Remove()
	}
	mk.m = m
	if m != nil {
		m.attach(mk)
		m.div.AppendChild(mk.label)
	}
}

// Map returns the map the marker is attached to, or nil.
func (mk *Marker) Map() *Map { return mk.m }

// Position returns the marker position.
func (mk *Marker) Position() core.Position { return mk.position }

// ZIndex returns the current z-index.
func (mk *Marker) ZIndex() int { return mk.zIndex }

// Flags returns the current style flags.
func (mk *Marker) Flags() Flags { return mk.flags }

// LabelClass returns the rendered label class.
func (mk *Marker) LabelClass() string { return LabelClass(mk.baseClass, mk.flags) }

// Label returns the label element.
func (mk *Marker) Label() *dom.Element { return mk.label }

// Icon returns the icon.
func (mk *Marker) Icon() Icon { return mk.icon }

// LabelAnchor returns the label offset.
func (mk *Marker) LabelAnchor() Point { return mk.labelAnchor }

// Draggable reports whether the marker can be dragged.
func (mk *Marker) Draggable() bool { return mk.draggable }

// HoverContent returns the hover popover content.
func (mk *Marker) HoverContent() string { return mk.hoverContent }

// ClickContent returns the click popover content.
func (mk *Marker) ClickContent() string { return mk.clickContent }

func (mk *Marker) render() {
	mk.label.SetClassName(mk.LabelClass())
	mk.label.SetAttr("style", "z-index: "+strconv.Itoa(mk.zIndex))
	mk.label.SetAttr("data-lat", strconv.FormatFloat(mk.position.Lat, 'f', -1, 64))
	mk.label.SetAttr("data-lng", strconv.FormatFloat(mk.position.Lng, 'f', -1, 64))
}
