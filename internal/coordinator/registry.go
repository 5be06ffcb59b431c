package coordinator

import (
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/internal/ledger"
	"github.com/pinmap/pinstate/internal/marker"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/samber/lo"
)

// Render creates one marker per record, in order, registers each with the
// spiderfier and subscribes the hover and click listeners. Rendering again
// replaces the previous markers. The returned order is the index space used
// by hover proxies.
func (c *Coordinator) Render(collection []core.PointRecord) []*marker.Marker {
	if c.destroyed {
		c.logger.Debug("render after destroy ignored")
		return nil
	}
	if len(c.markers) > 0 {
		c.teardownMarkers(core.CauseRender)
		c.deps.Popovers.CloseAll(false)
	}

	c.markers = make([]*marker.Marker, 0, len(collection))
	c.pins = make([]pin, len(collection))
	for i, rec := range collection {
		mk := c.deps.Map.NewMarker(rec.Position(), marker.Options{
			ZIndex:       lo.ToPtr(c.cfg.Layers.Idle),
			Icon:         &marker.Icon{Path: marker.SymbolCircle, Scale: 0},
			LabelAnchor:  lo.ToPtr(c.cfg.LabelAnchor),
			Draggable:    lo.ToPtr(false),
			HoverContent: lo.ToPtr(rec.HoverContent),
			ClickContent: lo.ToPtr(rec.ClickContent),
		})
		c.markers = append(c.markers, mk)
		c.index[mk] = i
		c.deps.Spiderfier.AddMarker(mk)
	}

	c.bindListeners(false)
	c.applyAll(core.CauseRender)

	c.logger.Debug("markers rendered", "count", len(c.markers))
	return c.Markers()
}

// bindListeners subscribes hover and click listeners on every marker and
// tracks them in the ledger. With suppress set, hovering does not raise a
// marker's z-index.
func (c *Coordinator) bindListeners(suppress bool) {
	c.suppress = suppress
	for i, mk := range c.markers {
		c.ledger.Add(ledger.Record{Marker: i, Kind: ledger.MouseOver, Listener: mk.AddListener(string(ledger.MouseOver), c.onMouseOver, events.Logged())})
		c.ledger.Add(ledger.Record{Marker: i, Kind: ledger.MouseOut, Listener: mk.AddListener(string(ledger.MouseOut), c.onMouseOut, events.Logged())})
		c.ledger.Add(ledger.Record{Marker: i, Kind: ledger.Click, Listener: mk.AddListener(string(ledger.Click), c.onClick, events.Logged())})
	}
}

// rebindListeners clears the ledger before subscribing again so rewiring
// never leaves duplicate subscriptions behind.
func (c *Coordinator) rebindListeners(suppress bool) {
	c.ledger.Clear()
	c.bindListeners(suppress)
}
