// Package coordinator decides which marker is hovered or clicked, whether the
// marker cluster is spiderfied, and which popovers are visible. Rendering,
// declustering and popovers are delegated to the marker, spider and popover
// packages.
//
// A Coordinator is driven from a single event loop and is not safe for
// concurrent use.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/internal/ledger"
	"github.com/pinmap/pinstate/internal/marker"
	"github.com/pinmap/pinstate/internal/popover"
	"github.com/pinmap/pinstate/internal/spider"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pinmap/pinstate/internal/coordinator"

// Spiderfier fans out overlapping markers.
type Spiderfier interface {
	AddMarker(mk *marker.Marker)
	AddListener(name string, l spider.Listener)
}

// markerRemover is implemented by spiderfiers that can forget a marker.
type markerRemover interface {
	RemoveMarker(mk *marker.Marker)
}

// Recorder receives every visual change the coordinator applies.
type Recorder interface {
	Record(t core.Transition)
}

// Config holds the coordinator's tunables.
type Config struct {
	Layers      Layers
	Placement   string
	LabelAnchor marker.Point

	// ProxyClass and ProxyIndexAttr identify hover proxies outside the map.
	ProxyClass     string
	ProxyIndexAttr string

	// ProxyRespectsGroup makes proxy hovers use the same stacking as direct
	// hovers while spiderfied. When false a proxy hover always raises to the
	// hover layer and always restores to the idle layer.
	ProxyRespectsGroup bool
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Layers:             DefaultLayers(),
		Placement:          popover.DefaultPlacement,
		LabelAnchor:        marker.Point{X: 10, Y: 10},
		ProxyClass:         "PinResult",
		ProxyIndexAttr:     "data-pinindex",
		ProxyRespectsGroup: true,
	}
}

// Dependencies are the collaborators a Coordinator drives.
type Dependencies struct {
	Map        *marker.Map
	Spiderfier Spiderfier
	Popovers   *popover.Controller
	Recorder   Recorder
	Logger     *slog.Logger
}

// Coordinator owns the marker handles and listener ledger for one map.
type Coordinator struct {
	deps   Dependencies
	cfg    Config
	logger *slog.Logger

	markers []*marker.Marker
	index   map[*marker.Marker]int
	pins    []pin

	group     GroupState
	suppress  bool
	clicked   int
	destroyed bool

	ledger       *ledger.Ledger
	docListeners []*events.Listener

	// last marker click the spiderfier acted on
	lastConsumed events.Event

	transitions metric.Int64Counter
}

// New creates a Coordinator, subscribes it to the document's proxy hover and
// click-away events and to the spiderfier.
func New(deps Dependencies, cfg Config) (*Coordinator, error) {
	if deps.Map == nil || deps.Spiderfier == nil || deps.Popovers == nil {
		return nil, fmt.Errorf("coordinator: map, spiderfier and popovers are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With("component", "coordinator"),
		index:   make(map[*marker.Marker]int),
		clicked: -1,
		ledger:  ledger.New(),
	}

	var err error
	c.transitions, err = otel.Meter(instrumentationName).Int64Counter(
		"coordinator.transitions",
		metric.WithDescription("Total marker visual transitions applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	doc := deps.Map.Document()
	c.docListeners = []*events.Listener{
		doc.AddEventListener("mouseover", c.onProxyOver, events.Logged()),
		doc.AddEventListener("mouseout", c.onProxyOut, events.Logged()),
		doc.AddEventListener("click", c.onDocumentClick, events.Logged()),
	}

	deps.Spiderfier.AddListener(spider.EventClick, c.onGroupClick)
	deps.Spiderfier.AddListener(spider.EventSpiderfy, c.onSpiderfy)
	deps.Spiderfier.AddListener(spider.EventUnspiderfy, c.onUnspiderfy)

	return c, nil
}

// Markers returns the rendered handles in input order.
func (c *Coordinator) Markers() []*marker.Marker {
	return append([]*marker.Marker(nil), c.markers...)
}

// Marker returns the handle at i, or nil when i is out of range.
func (c *Coordinator) Marker(i int) *marker.Marker {
	if i < 0 || i >= len(c.markers) {
		return nil
	}
	return c.markers[i]
}

// GroupState returns the cluster state.
func (c *Coordinator) GroupState() GroupState { return c.group }

// State returns the visual state of marker i. Out-of-range indices report Idle.
func (c *Coordinator) State(i int) MarkerState {
	if c.Marker(i) == nil {
		return Idle
	}
	p := c.pins[i]
	switch {
	case c.clicked == i && c.deps.Popovers.Count(popover.Clicked) > 0:
		return Clicked
	case p.hovered:
		return Hovered
	case c.group == Spiderfied && p.member:
		return SpiderfiedMember
	case c.group == Spiderfied:
		return Faded
	default:
		return Idle
	}
}

// Ledger exposes the listener ledger.
func (c *Coordinator) Ledger() *ledger.Ledger { return c.ledger }

// Destroyed reports whether Destroy has run.
func (c *Coordinator) Destroyed() bool { return c.destroyed }

// LogAttrs describes the coordinator for log records.
func (c *Coordinator) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("group", c.group.String()),
		slog.Int("markers", len(c.markers)),
		slog.Int("listeners", c.ledger.Len()),
	}
}

// Destroy clears every listener, closes popovers and detaches every marker.
// Later calls, and any event arriving afterwards, are no-ops.
func (c *Coordinator) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	c.teardownMarkers(core.CauseDestroy)
	c.deps.Popovers.CloseAll(false)
	for _, l := range c.docListeners {
		l.Remove()
	}
	c.docListeners = nil
	c.logger.Debug("coordinator destroyed")
}

// teardownMarkers drops listeners and detaches all current markers. State is
// reset before the spiderfier lets go of the markers, since removing a fanned
// out marker collapses the group and notifies us.
func (c *Coordinator) teardownMarkers(cause core.Cause) {
	c.ledger.Clear()
	for i := range c.markers {
		c.record(i, cause)
	}
	old := c.markers
	c.markers = nil
	c.pins = nil
	c.index = make(map[*marker.Marker]int)
	c.group = Collapsed
	c.suppress = false
	c.clicked = -1

	remover, canRemove := c.deps.Spiderfier.(markerRemover)
	for _, mk := range old {
		if canRemove {
			remover.RemoveMarker(mk)
		}
		mk.SetMap(nil)
	}
}

// apply renders marker i's current state and records it.
func (c *Coordinator) apply(i int, cause core.Cause) {
	v := c.visual(i)
	c.markers[i].SetOptions(marker.Options{
		ZIndex: lo.ToPtr(v.zIndex(c.cfg.Layers)),
		Flags:  lo.ToPtr(v.flags()),
	})
	c.record(i, cause)
}

// applyAll renders every marker.
func (c *Coordinator) applyAll(cause core.Cause) {
	for i := range c.markers {
		c.apply(i, cause)
	}
}

func (c *Coordinator) visual(i int) visual {
	return visual{pin: c.pins[i], group: c.group, suppress: c.suppress}
}

func (c *Coordinator) record(i int, cause core.Cause) {
	mk := c.markers[i]
	c.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cause", string(cause))))
	if c.deps.Recorder == nil {
		return
	}
	c.deps.Recorder.Record(core.Transition{
		Time:        time.Now(),
		MarkerIndex: i,
		Position:    mk.Position(),
		Cause:       cause,
		State:       c.State(i).String(),
		GroupState:  c.group.String(),
		ZIndex:      mk.ZIndex(),
		LabelClass:  mk.LabelClass(),
		Flags:       mk.Flags().Names(),
	})
}
