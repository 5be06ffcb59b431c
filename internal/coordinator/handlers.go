package coordinator

import (
	"strconv"

	"github.com/pinmap/pinstate/internal/dom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/internal/marker"
	"github.com/pinmap/pinstate/internal/popover"
	"github.com/pinmap/pinstate/internal/spider"
	"github.com/pinmap/pinstate/pkg/core"
)

// lookup resolves the marker an event was registered on. A miss means the
// event raced a re-render and is dropped.
func (c *Coordinator) lookup(e events.Event) (int, *marker.Marker, bool) {
	if c.destroyed {
		return 0, nil, false
	}
	mk, ok := e.Source.(*marker.Marker)
	if !ok {
		return 0, nil, false
	}
	i, ok := c.index[mk]
	if !ok {
		return 0, nil, false
	}
	return i, mk, true
}

// anchor returns the event target element, falling back to the marker label.
func anchor(e events.Event, mk *marker.Marker) *dom.Element {
	if el, ok := e.Target.(*dom.Element); ok && el != nil {
		return el
	}
	return mk.Label()
}

func (c *Coordinator) placement() popover.Placement {
	return popover.Placement{Placement: c.cfg.Placement, Boundaries: c.deps.Map.Div()}
}

func (c *Coordinator) onMouseOver(e events.Event) {
	i, mk, ok := c.lookup(e)
	if !ok {
		return
	}
	c.deps.Popovers.CloseAll(true)
	c.pins[i].hovered = true
	c.pins[i].zOverride = 0
	c.apply(i, core.CauseMouseOver)
	c.deps.Popovers.Open(popover.Hover, anchor(e, mk), mk.HoverContent(), c.placement())
}

func (c *Coordinator) onMouseOut(e events.Event) {
	i, _, ok := c.lookup(e)
	if !ok {
		return
	}
	c.pins[i].hovered = false
	c.pins[i].zOverride = 0
	c.apply(i, core.CauseMouseOut)
	c.deps.Popovers.CloseAll(true)
}

// onClick opens the click popover for marker clicks the spiderfier did not
// report. Clicks it reports are handled in onGroupClick and onSpiderfy.
func (c *Coordinator) onClick(e events.Event) {
	i, mk, ok := c.lookup(e)
	if !ok || c.consumed(e) {
		return
	}
	c.openClicked(i, mk, e)
}

// openClicked replaces every popover with marker i's click popover.
func (c *Coordinator) openClicked(i int, mk *marker.Marker, e events.Event) {
	c.deps.Popovers.CloseAll(false)
	c.clicked = -1
	if c.deps.Popovers.Open(popover.Clicked, anchor(e, mk), mk.ClickContent(), c.placement()) != nil {
		c.clicked = i
	}
	c.record(i, core.CauseClick)
}

// consume marks a marker click as handled by the spiderfier.
func (c *Coordinator) consume(e events.Event) {
	if _, ok := e.Source.(*marker.Marker); ok {
		c.lastConsumed = e
	}
}

func (c *Coordinator) consumed(e events.Event) bool {
	return c.lastConsumed.Source == e.Source && c.lastConsumed.Timestamp.Equal(e.Timestamp)
}

// proxyIndex resolves a document event target to a marker index when the
// target is a hover proxy.
func (c *Coordinator) proxyIndex(e events.Event) (int, bool) {
	if c.destroyed {
		return 0, false
	}
	el, ok := e.Target.(*dom.Element)
	if !ok || el == nil || !el.HasClass(c.cfg.ProxyClass) {
		return 0, false
	}
	raw, ok := el.Attr(c.cfg.ProxyIndexAttr)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(raw)
	if err != nil || c.Marker(i) == nil {
		return 0, false
	}
	return i, true
}

func (c *Coordinator) onProxyOver(e events.Event) {
	i, ok := c.proxyIndex(e)
	if !ok {
		return
	}
	c.pins[i].hovered = true
	if !c.cfg.ProxyRespectsGroup {
		c.pins[i].zOverride = c.cfg.Layers.Hover
	}
	c.apply(i, core.CauseProxyOver)
}

func (c *Coordinator) onProxyOut(e events.Event) {
	i, ok := c.proxyIndex(e)
	if !ok {
		return
	}
	c.pins[i].hovered = false
	if !c.cfg.ProxyRespectsGroup {
		c.pins[i].zOverride = c.cfg.Layers.Idle
	}
	c.apply(i, core.CauseProxyOut)
}

// onDocumentClick closes every popover unless the click landed on a clicked
// popover.
func (c *Coordinator) onDocumentClick(e events.Event) {
	if c.destroyed {
		return
	}
	if el, ok := e.Target.(*dom.Element); ok && el != nil && el.HasClass(popover.ClassClicked) {
		return
	}
	if c.deps.Popovers.CloseAll(false) == 0 {
		return
	}
	if i := c.clicked; c.Marker(i) != nil {
		c.clicked = -1
		c.record(i, core.CauseDocumentClick)
	}
}

// onGroupClick handles a click the spiderfier passed through, either on a
// lone marker or on a member of the fanned-out group, and opens its click
// popover. The spiderfier may have collapsed the group first, which rewires
// our own marker listeners mid-dispatch.
func (c *Coordinator) onGroupClick(ev spider.Event) {
	if c.destroyed {
		return
	}
	c.deps.Popovers.CloseAll(true)
	if len(ev.Markers) == 0 {
		return
	}
	c.consume(ev.Source)
	mk := ev.Markers[0]
	i, ok := c.index[mk]
	if !ok {
		return
	}
	c.openClicked(i, mk, ev.Source)
}

func (c *Coordinator) onSpiderfy(ev spider.Event) {
	if c.destroyed {
		return
	}
	c.consume(ev.Source)
	c.clearHover()
	c.deps.Popovers.CloseAll(true)

	c.group = Spiderfied
	for i := range c.pins {
		c.pins[i].member = false
	}
	for _, mk := range ev.Markers {
		if i, ok := c.index[mk]; ok {
			c.pins[i].member = true
		}
	}

	c.rebindListeners(true)
	c.applyAll(core.CauseSpiderfy)
	c.logger.Debug("group spiderfied", "members", len(ev.Markers))
}

func (c *Coordinator) onUnspiderfy(ev spider.Event) {
	if c.destroyed {
		return
	}
	c.clearHover()
	c.deps.Popovers.CloseAll(true)

	c.group = Collapsed
	for i := range c.pins {
		c.pins[i].member = false
	}

	c.rebindListeners(false)
	c.applyAll(core.CauseUnspiderfy)
	c.logger.Debug("group collapsed", "members", len(ev.Markers))
}

// clearHover drops hover residue from every marker. Callers re-render.
func (c *Coordinator) clearHover() {
	for i := range c.pins {
		c.pins[i].hovered = false
		c.pins[i].zOverride = 0
	}
}
