package popover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pinmap/pinstate/internal/dom"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/html"
)

const instrumentationName = "github.com/pinmap/pinstate/internal/popover"

// Kind distinguishes transient hover popovers from persistent clicked ones.
type Kind int

const (
	Hover Kind = iota
	Clicked
)

func (k Kind) String() string {
	if k == Clicked {
		return "clicked"
	}
	return "hover"
}

// Controller opens and closes popovers. The document is the source of truth:
// open popovers are whatever elements carry ClassPopper.
type Controller struct {
	doc     *dom.Document
	lib     Library
	logger  *slog.Logger
	anchors map[*html.Node]*dom.Element

	opened metric.Int64Counter
	closed metric.Int64Counter
}

// NewController creates a Controller rendering through lib.
func NewController(doc *dom.Document, lib Library, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		doc:     doc,
		lib:     lib,
		logger:  logger,
		anchors: make(map[*html.Node]*dom.Element),
	}

	m := otel.Meter(instrumentationName)

	var err error
	c.opened, err = m.Int64Counter(
		"popover.opened",
		metric.WithDescription("Total popovers opened"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating opened counter: %w", err)
	}
	c.closed, err = m.Int64Counter(
		"popover.closed",
		metric.WithDescription("Total popovers removed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating closed counter: %w", err)
	}

	return c, nil
}

// Open shows content anchored at anchor. A clicked popover replaces every
// open popover; a hover popover replaces only unclicked ones. Empty content
// opens nothing and closes nothing.
func (c *Controller) Open(kind Kind, anchor *dom.Element, content string, placement Placement) *dom.Element {
	if content == "" {
		return nil
	}

	classes := []string{ClassPopper}
	if kind == Clicked {
		c.CloseAll(false)
		classes = append(classes, ClassClicked)
	} else {
		c.CloseAll(true)
	}

	el, err := c.lib.Create(anchor, Content{Body: content, AllowHTML: true, Classes: classes}, placement)
	if err != nil {
		c.logger.Warn("popover not opened", "kind", kind.String(), "error", err)
		return nil
	}
	c.anchors[el.Node()] = anchor
	c.opened.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	return el
}

// CloseAll removes open popovers. With onlyUnclicked set, clicked popovers
// are left in place. It returns how many were removed.
func (c *Controller) CloseAll(onlyUnclicked bool) int {
	removed := 0
	for _, el := range c.doc.ElementsByClassName(ClassPopper) {
		if onlyUnclicked && el.HasClass(ClassClicked) {
			continue
		}
		kind := Hover
		if el.HasClass(ClassClicked) {
			kind = Clicked
		}
		el.Remove()
		delete(c.anchors, el.Node())
		removed++
		c.closed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
	}
	return removed
}

// Popovers returns the open popovers of kind in document order.
func (c *Controller) Popovers(kind Kind) []*dom.Element {
	var out []*dom.Element
	for _, el := range c.doc.ElementsByClassName(ClassPopper) {
		if el.HasClass(ClassClicked) == (kind == Clicked) {
			out = append(out, el)
		}
	}
	return out
}

// Count returns the number of open popovers of kind.
func (c *Controller) Count(kind Kind) int {
	return len(c.Popovers(kind))
}

// Anchor returns the element popover el was opened against.
func (c *Controller) Anchor(el *dom.Element) *dom.Element {
	if el == nil {
		return nil
	}
	return c.anchors[el.Node()]
}
