package app

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pinmap/pinstate/internal/coordinator"
	"github.com/pinmap/pinstate/internal/dom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/pinmap/pinstate/internal/geo"
	"github.com/pinmap/pinstate/internal/marker"
	"github.com/pinmap/pinstate/internal/popover"
	"github.com/pinmap/pinstate/internal/spider"
	"github.com/pinmap/pinstate/pkg/core"
)

const (
	mapID        = "map"
	resultListID = "results"
	blankPage    = `<html><head></head><body></body></html>`
)

// SceneOptions configures a Scene.
type SceneOptions struct {
	// Page hosts the hover proxies. Nil starts from a blank page and one
	// proxy per point is generated on Render.
	Page io.Reader

	BusLogger   events.Logger
	Logger      *slog.Logger
	Recorder    coordinator.Recorder
	Spider      spider.Config
	Coordinator coordinator.Config
}

// Scene is one map with its coordinator and collaborators, driven by
// scripted steps instead of a browser.
type Scene struct {
	Bus         *events.Bus
	Doc         *dom.Document
	Map         *marker.Map
	Spider      *spider.Spiderfier
	Popovers    *popover.Controller
	Coordinator *coordinator.Coordinator

	cfg    coordinator.Config
	logger *slog.Logger
	points []core.PointRecord
}

// NewScene builds the document, map, spiderfier, popover controller and
// coordinator. The spiderfier is created first so its marker click listener
// runs before the coordinator's.
func NewScene(opts SceneOptions) (*Scene, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus, err := events.New(opts.BusLogger)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	page := opts.Page
	if page == nil {
		page = strings.NewReader(blankPage)
	}
	doc, err := dom.Parse(page, bus)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	m := marker.NewMap(doc, bus, mapID)
	s := spider.New(m, opts.Spider)
	popovers, err := popover.NewController(doc, popover.NewPopper(doc), logger)
	if err != nil {
		return nil, fmt.Errorf("creating popover controller: %w", err)
	}

	c, err := coordinator.New(coordinator.Dependencies{
		Map:        m,
		Spiderfier: s,
		Popovers:   popovers,
		Recorder:   opts.Recorder,
		Logger:     logger,
	}, opts.Coordinator)
	if err != nil {
		return nil, err
	}

	return &Scene{
		Bus:         bus,
		Doc:         doc,
		Map:         m,
		Spider:      s,
		Popovers:    popovers,
		Coordinator: c,
		cfg:         opts.Coordinator,
		logger:      logger,
	}, nil
}

// Render hands points to the coordinator and makes sure every point has a
// hover proxy in the page.
func (s *Scene) Render(points []core.PointRecord) []*marker.Marker {
	s.points = points
	markers := s.Coordinator.Render(points)
	if len(s.Doc.ElementsByClassName(s.cfg.ProxyClass)) == 0 {
		s.addProxies(len(points))
	}
	return markers
}

func (s *Scene) addProxies(n int) {
	list := s.Doc.CreateElement("ul")
	list.SetAttr("id", resultListID)
	for i := 0; i < n; i++ {
		li := s.Doc.CreateElement("li")
		li.SetClassName(s.cfg.ProxyClass)
		li.SetAttr(s.cfg.ProxyIndexAttr, strconv.Itoa(i))
		li.SetText(fmt.Sprintf("Result %d", i+1))
		list.AppendChild(li)
	}
	s.Doc.Body().AppendChild(list)
}

// Proxy returns the hover proxy for marker index i, or nil.
func (s *Scene) Proxy(i int) *dom.Element {
	want := strconv.Itoa(i)
	for _, el := range s.Doc.ElementsByClassName(s.cfg.ProxyClass) {
		if v, ok := el.Attr(s.cfg.ProxyIndexAttr); ok && v == want {
			return el
		}
	}
	return nil
}

// Apply performs one step. Steps naming a missing marker, proxy or popover
// do nothing.
func (s *Scene) Apply(st Step) error {
	switch st.Action {
	case ActionMouseOver, ActionMouseOut, ActionClick:
		if mk := s.Coordinator.Marker(st.Marker); mk != nil {
			mk.Trigger(st.Action)
		}
	case ActionProxyOver:
		if el := s.Proxy(st.Marker); el != nil {
			s.Doc.Dispatch("mouseover", el)
		}
	case ActionProxyOut:
		if el := s.Proxy(st.Marker); el != nil {
			s.Doc.Dispatch("mouseout", el)
		}
	case ActionDocumentClick:
		s.Doc.Dispatch("click", s.Doc.Body())
	case ActionClickedPopover:
		if open := s.Popovers.Popovers(popover.Clicked); len(open) > 0 {
			s.Doc.Dispatch("click", open[0])
		}
	case ActionMapClick:
		s.Map.Trigger("click")
	case ActionRender:
		s.Render(s.points)
	case ActionDestroy:
		s.Coordinator.Destroy()
	default:
		return fmt.Errorf("%w %q", errUnknownAction, st.Action)
	}

	s.logger.Debug("step applied", "action", st.Action, "marker", st.Marker)
	return nil
}

// Run applies every step in order.
func (s *Scene) Run(script Script) error {
	for i, st := range script.Steps {
		if err := s.Apply(st); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// MarkerReport is the final visual state of one marker.
type MarkerReport struct {
	Index      int           `json:"index"`
	State      string        `json:"state"`
	ZIndex     int           `json:"zIndex"`
	LabelClass string        `json:"labelClass"`
	Position   core.Position `json:"position"`
}

// Report describes every rendered marker.
func (s *Scene) Report() []MarkerReport {
	markers := s.Coordinator.Markers()
	out := make([]MarkerReport, len(markers))
	for i, mk := range markers {
		out[i] = MarkerReport{
			Index:      i,
			State:      s.Coordinator.State(i).String(),
			ZIndex:     mk.ZIndex(),
			LabelClass: mk.LabelClass(),
			Position:   mk.Position(),
		}
	}
	return out
}

// LegReport is one spiderfy leg drawn from the group centre.
type LegReport struct {
	Index  int     `json:"index"`
	Pixels float64 `json:"pixels"`
}

// Legs describes the legs of the fanned-out group, in marker order.
func (s *Scene) Legs(zoom float64) []LegReport {
	var out []LegReport
	for _, leg := range s.Spider.Legs() {
		for i, mk := range s.Coordinator.Markers() {
			if mk == leg.Marker {
				out = append(out, LegReport{Index: i, Pixels: geo.LegPixels(leg.Line, zoom)})
			}
		}
	}
	return out
}

// Close destroys the coordinator and releases the spiderfier.
func (s *Scene) Close() {
	s.Coordinator.Destroy()
	s.Spider.Close()
}
