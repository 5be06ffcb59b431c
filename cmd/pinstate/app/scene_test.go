package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pinmap/pinstate/internal/coordinator"
	"github.com/pinmap/pinstate/internal/popover"
	"github.com/pinmap/pinstate/internal/spider"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cluster = []core.PointRecord{
	{Lat: 48.8584, Lng: 2.2945, HoverContent: "h0", ClickContent: "c0"},
	{Lat: 48.8584, Lng: 2.2945, HoverContent: "h1", ClickContent: "c1"},
	{Lat: 48.8584, Lng: 2.2945, HoverContent: "h2", ClickContent: "c2"},
	{Lat: 48.8606, Lng: 2.3376, HoverContent: "h3", ClickContent: "c3"},
}

type transitions struct {
	got []core.Transition
}

func (r *transitions) Record(t core.Transition) { r.got = append(r.got, t) }

func newScene(t *testing.T, opts SceneOptions) *Scene {
	t.Helper()
	if opts.Spider == (spider.Config{}) {
		opts.Spider = spider.DefaultConfig()
	}
	if opts.Coordinator.ProxyClass == "" {
		opts.Coordinator = coordinator.DefaultConfig()
	}
	s, err := NewScene(opts)
	require.NoError(t, err)
	return s
}

func states(s *Scene) []string {
	var out []string
	for _, r := range s.Report() {
		out = append(out, r.State)
	}
	return out
}

func TestScene_GeneratesProxies(t *testing.T) {
	s := newScene(t, SceneOptions{})
	s.Render(cluster)

	for i := range cluster {
		el := s.Proxy(i)
		require.NotNil(t, el, "proxy %d", i)
		assert.True(t, el.HasClass("PinResult"))
	}
	assert.Nil(t, s.Proxy(len(cluster)))
}

func TestScene_UsesPageProxies(t *testing.T) {
	page := `<html><body><ol><li class="PinResult" data-pinindex="3">Far</li></ol></body></html>`
	s := newScene(t, SceneOptions{Page: strings.NewReader(page)})
	s.Render(cluster)

	assert.Len(t, s.Doc.ElementsByClassName("PinResult"), 1)
	require.NotNil(t, s.Proxy(3))
	assert.Nil(t, s.Proxy(0))

	require.NoError(t, s.Apply(Step{Action: ActionProxyOver, Marker: 3}))
	assert.Equal(t, "hovered", s.Report()[3].State)
	assert.Equal(t, 10000, s.Report()[3].ZIndex)
}

func TestScene_SpiderfyRoundTrip(t *testing.T) {
	s := newScene(t, SceneOptions{})
	s.Render(cluster)

	require.NoError(t, s.Run(Script{Steps: []Step{{Action: ActionClick, Marker: 0}}}))
	assert.Equal(t, []string{"spiderfied", "spiderfied", "spiderfied", "faded"}, states(s))
	assert.Equal(t, 20000, s.Report()[0].ZIndex)
	assert.Equal(t, 1000, s.Report()[3].ZIndex)
	assert.NotEqual(t, cluster[0].Position(), s.Report()[0].Position, "members fan out")

	legs := s.Legs(spider.DefaultConfig().Zoom)
	require.Len(t, legs, 3)
	for i, l := range legs {
		assert.Equal(t, i, l.Index)
		assert.Greater(t, l.Pixels, 0.0)
	}

	require.NoError(t, s.Apply(Step{Action: ActionMapClick}))
	assert.Equal(t, []string{"idle", "idle", "idle", "idle"}, states(s))
	assert.Empty(t, s.Legs(15))
	for _, r := range s.Report() {
		assert.Equal(t, 100, r.ZIndex)
		assert.Equal(t, "marker-point", r.LabelClass)
	}
}

func TestScene_ClickAndClickAway(t *testing.T) {
	s := newScene(t, SceneOptions{})
	s.Render(cluster)

	require.NoError(t, s.Apply(Step{Action: ActionClick, Marker: 3}))
	assert.Equal(t, 1, s.Popovers.Count(popover.Clicked))
	assert.Equal(t, "clicked", s.Report()[3].State)

	require.NoError(t, s.Apply(Step{Action: ActionClickedPopover}))
	assert.Equal(t, 1, s.Popovers.Count(popover.Clicked), "clicking the popover keeps it")

	require.NoError(t, s.Apply(Step{Action: ActionDocumentClick}))
	assert.Equal(t, 0, s.Popovers.Count(popover.Clicked))
	assert.Equal(t, "idle", s.Report()[3].State)
}

func TestScene_MissingTargetsAreNoOps(t *testing.T) {
	rec := &transitions{}
	s := newScene(t, SceneOptions{Recorder: rec})
	s.Render(cluster)
	before := len(rec.got)

	require.NoError(t, s.Run(Script{Steps: []Step{
		{Action: ActionMouseOver, Marker: 9},
		{Action: ActionProxyOver, Marker: -1},
		{Action: ActionClickedPopover},
		{Action: ActionDocumentClick},
	}}))
	assert.Equal(t, before, len(rec.got))
}

func TestScene_UnknownAction(t *testing.T) {
	s := newScene(t, SceneOptions{})
	err := s.Run(Script{Steps: []Step{{Action: "wiggle"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownAction)
}

func TestScene_RenderAndDestroySteps(t *testing.T) {
	rec := &transitions{}
	s := newScene(t, SceneOptions{Recorder: rec})
	s.Render(cluster)

	require.NoError(t, s.Apply(Step{Action: ActionRender}))
	assert.Len(t, s.Report(), 4)
	assert.Len(t, s.Doc.ElementsByClassName("PinResult"), 4, "proxies are not duplicated")

	require.NoError(t, s.Apply(Step{Action: ActionDestroy}))
	assert.True(t, s.Coordinator.Destroyed())
	assert.Empty(t, s.Report())
	assert.Equal(t, core.CauseDestroy, rec.got[len(rec.got)-1].Cause)
}

func TestScene_Close(t *testing.T) {
	s := newScene(t, SceneOptions{})
	s.Render(cluster)
	s.Close()

	assert.Equal(t, 0, s.Bus.Count())
}

func TestWriteReport(t *testing.T) {
	report := []MarkerReport{{Index: 0, State: "idle", ZIndex: 100, LabelClass: "marker-point", Position: core.Position{Lat: 1, Lng: 2}}}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, "table"))
	assert.Contains(t, buf.String(), "INDEX")
	assert.Contains(t, buf.String(), "marker-point")
	assert.Contains(t, buf.String(), "1.000000")

	buf.Reset()
	require.NoError(t, writeReport(&buf, report, "json"))
	assert.Contains(t, buf.String(), `"labelClass": "marker-point"`)

	assert.Error(t, writeReport(&buf, report, "xml"))
}
