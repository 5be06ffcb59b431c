package popover

import (
	"errors"
	"testing"

	"github.com/pinmap/pinstate/internal/dom"
	"github.com/pinmap/pinstate/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLibrary struct{}

func (failingLibrary) Create(*dom.Element, Content, Placement) (*dom.Element, error) {
	return nil, errors.New("boom")
}

func newTestController(t *testing.T) (*Controller, *dom.Document, *dom.Element) {
	bus, err := events.New(nil)
	require.NoError(t, err)
	doc := dom.NewDocument(bus)

	anchor := doc.CreateElement("div")
	anchor.SetClassName("marker-point")
	doc.Body().AppendChild(anchor)

	c, err := NewController(doc, NewPopper(doc), nil)
	require.NoError(t, err)
	return c, doc, anchor
}

func TestPopper_Create(t *testing.T) {
	bus, err := events.New(nil)
	require.NoError(t, err)
	doc := dom.NewDocument(bus)
	boundaries := doc.CreateElement("div")
	boundaries.SetAttr("id", "map")
	anchor := doc.CreateElement("div")

	el, err := NewPopper(doc).Create(anchor, Content{Body: "<em>A</em>", AllowHTML: true}, Placement{Boundaries: boundaries})
	require.NoError(t, err)

	assert.Equal(t, "popper", el.ClassName())
	assert.Equal(t, "A", el.Text())
	where, _ := el.Attr("x-placement")
	assert.Equal(t, DefaultPlacement, where)
	b, _ := el.Attr("data-boundaries")
	assert.Equal(t, "map", b)
	assert.True(t, doc.Contains(el))
}

func TestPopper_CreateEscapesWithoutHTML(t *testing.T) {
	bus, err := events.New(nil)
	require.NoError(t, err)
	doc := dom.NewDocument(bus)

	el, err := NewPopper(doc).Create(doc.CreateElement("div"), Content{Body: "<em>A</em>"}, Placement{})
	require.NoError(t, err)
	assert.Equal(t, "<em>A</em>", el.Text())
}

func TestPopper_CreateNilAnchor(t *testing.T) {
	bus, err := events.New(nil)
	require.NoError(t, err)

	_, err = NewPopper(dom.NewDocument(bus)).Create(nil, Content{Body: "A"}, Placement{})
	require.Error(t, err)
}

func TestController_OpenHover(t *testing.T) {
	c, _, anchor := newTestController(t)

	el := c.Open(Hover, anchor, "A", Placement{Placement: "top"})

	require.NotNil(t, el)
	assert.Equal(t, "A", el.Text())
	assert.False(t, el.HasClass(ClassClicked))
	assert.True(t, c.Anchor(el).Is(anchor))
	assert.Equal(t, 1, c.Count(Hover))
	assert.Equal(t, 0, c.Count(Clicked))
}

func TestController_OpenEmptyIsNoop(t *testing.T) {
	c, _, anchor := newTestController(t)
	c.Open(Clicked, anchor, "B", Placement{})

	assert.Nil(t, c.Open(Hover, anchor, "", Placement{}))
	assert.Nil(t, c.Open(Clicked, anchor, "", Placement{}))
	assert.Equal(t, 1, c.Count(Clicked), "empty content must not close anything")
}

func TestController_HoverReplacesHoverOnly(t *testing.T) {
	c, _, anchor := newTestController(t)

	c.Open(Clicked, anchor, "B", Placement{})
	c.Open(Hover, anchor, "A1", Placement{})
	c.Open(Hover, anchor, "A2", Placement{})

	hovers := c.Popovers(Hover)
	require.Len(t, hovers, 1)
	assert.Equal(t, "A2", hovers[0].Text())
	assert.Equal(t, 1, c.Count(Clicked))
}

func TestController_ClickedReplacesEverything(t *testing.T) {
	c, _, anchor := newTestController(t)

	c.Open(Hover, anchor, "A", Placement{})
	c.Open(Clicked, anchor, "B1", Placement{})
	c.Open(Clicked, anchor, "B2", Placement{})

	assert.Equal(t, 0, c.Count(Hover))
	clicked := c.Popovers(Clicked)
	require.Len(t, clicked, 1)
	assert.Equal(t, "B2", clicked[0].Text())
}

func TestController_CloseAll(t *testing.T) {
	c, _, anchor := newTestController(t)

	c.Open(Clicked, anchor, "B", Placement{})
	c.Open(Hover, anchor, "A", Placement{})

	assert.Equal(t, 1, c.CloseAll(true))
	assert.Equal(t, 1, c.Count(Clicked))

	c.Open(Hover, anchor, "A", Placement{})
	assert.Equal(t, 2, c.CloseAll(false))
	assert.Equal(t, 0, c.Count(Clicked))
	assert.Equal(t, 0, c.Count(Hover))

	assert.Equal(t, 0, c.CloseAll(false))
}

func TestController_LibraryFailure(t *testing.T) {
	bus, err := events.New(nil)
	require.NoError(t, err)
	doc := dom.NewDocument(bus)

	c, err := NewController(doc, failingLibrary{}, nil)
	require.NoError(t, err)

	assert.Nil(t, c.Open(Hover, doc.Body(), "A", Placement{}))
	assert.Equal(t, 0, c.Count(Hover))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "hover", Hover.String())
	assert.Equal(t, "clicked", Clicked.String())
}
