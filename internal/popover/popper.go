// Package popover renders transient popovers anchored to marker labels and
// keeps at most one hover and one clicked popover in the document.
package popover

import (
	"fmt"

	"github.com/pinmap/pinstate/internal/dom"
)

// Popover classes. Every popover carries ClassPopper; persistent ones also
// carry ClassClicked.
const (
	ClassPopper  = "popper"
	ClassClicked = "clicked"
)

// DefaultPlacement is used when a Placement leaves it empty.
const DefaultPlacement = "top"

// Content is what a popover shows.
type Content struct {
	Body      string
	AllowHTML bool
	Classes   []string // defaults to ClassPopper
}

// Placement positions a popover relative to its anchor.
type Placement struct {
	Placement  string
	Boundaries *dom.Element
}

// Library creates popover nodes in a document.
type Library interface {
	Create(anchor *dom.Element, content Content, placement Placement) (*dom.Element, error)
}

// Popper renders popovers into the document body.
type Popper struct {
	doc *dom.Document
}

// NewPopper creates a Popper rendering into doc.
func NewPopper(doc *dom.Document) *Popper {
	return &Popper{doc: doc}
}

// Create builds a popover for anchor and appends it to the body.
func (p *Popper) Create(anchor *dom.Element, content Content, placement Placement) (*dom.Element, error) {
	if anchor == nil {
		return nil, fmt.Errorf("creating popover: nil anchor")
	}

	classes := content.Classes
	if len(classes) == 0 {
		classes = []string{ClassPopper}
	}
	where := placement.Placement
	if where == "" {
		where = DefaultPlacement
	}

	el := p.doc.CreateElement("div")
	el.AddClass(classes...)
	el.SetAttr("role", "tooltip")
	el.SetAttr("x-placement", where)
	if placement.Boundaries != nil && placement.Boundaries.ID() != "" {
		el.SetAttr("data-boundaries", placement.Boundaries.ID())
	}

	arrow := p.doc.CreateElement("div")
	arrow.SetClassName("popper__arrow")
	el.AppendChild(arrow)

	inner := p.doc.CreateElement("div")
	inner.SetClassName("popper__inner")
	if content.AllowHTML {
		if err := inner.SetInnerHTML(content.Body); err != nil {
			return nil, fmt.Errorf("creating popover: %w", err)
		}
	} else {
		inner.SetText(content.Body)
	}
	el.AppendChild(inner)

	p.doc.Body().AppendChild(el)
	return el, nil
}
