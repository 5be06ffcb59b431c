// Package dom is a small in-memory document built on golang.org/x/net/html.
// It carries the label elements, popovers and hover proxies the coordinator
// works with, plus document-level event listeners.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pinmap/pinstate/internal/events"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const emptyDocument = `<!DOCTYPE html><html><head></head><body></body></html>`

// ErrNoBody is returned when a parsed document has no body element.
var ErrNoBody = errors.New("document has no body")

// Document owns a node tree and the document-level listeners registered on it.
type Document struct {
	root *html.Node
	body *html.Node
	bus  *events.Bus
}

// NewDocument creates an empty document dispatching through bus.
func NewDocument(bus *events.Bus) *Document {
	doc, err := Parse(strings.NewReader(emptyDocument), bus)
	if err != nil {
		// the literal above always parses
		panic(err)
	}
	return doc
}

// Parse reads an HTML document, e.g. a page that already carries hover proxies.
func Parse(r io.Reader, bus *events.Bus) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	body := find(root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Body })
	if body == nil {
		return nil, ErrNoBody
	}
	return &Document{root: root, body: body, bus: bus}, nil
}

// Body returns the body element.
func (d *Document) Body() *Element {
	return &Element{n: d.body}
}

// CreateElement returns a detached element with the given tag.
func (d *Document) CreateElement(tag string) *Element {
	return &Element{n: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
}

// ElementByID returns the first attached element with the id, or nil.
func (d *Document) ElementByID(id string) *Element {
	n := find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// ElementsByClassName returns attached elements carrying class, in document order.
func (d *Document) ElementsByClassName(class string) []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, &Element{n: n})
		}
	})
	return out
}

// AddEventListener registers a document-level listener.
func (d *Document) AddEventListener(name string, h events.HandlerFunc, opts ...events.Option) *events.Listener {
	return d.bus.AddListener(d, name, h, opts...)
}

// Dispatch delivers an event originating at target. Listeners on the target
// element fire first, then document-level listeners.
func (d *Document) Dispatch(name string, target *Element) {
	if target != nil {
		d.bus.Trigger(target.n, name, target)
	}
	d.bus.Trigger(d, name, target)
}

// AddElementListener registers a listener on a single element.
func (d *Document) AddElementListener(el *Element, name string, h events.HandlerFunc) *events.Listener {
	return d.bus.AddListener(el.n, name, h)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// Contains reports whether el is attached to this document.
func (d *Document) Contains(el *Element) bool {
	if el == nil {
		return false
	}
	for n := el.n; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}
