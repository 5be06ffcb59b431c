package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Element wraps a node. Two Elements are the same element when Is reports true.
type Element struct {
	n *html.Node
}

// Node exposes the underlying node.
func (e *Element) Node() *html.Node { return e.n }

// Is reports whether e and other wrap the same node.
func (e *Element) Is(other *Element) bool {
	return e != nil && other != nil && e.n == other.n
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.n.Data }

// Attr returns the value of key.
func (e *Element) Attr(key string) (string, bool) {
	return attr(e.n, key)
}

// SetAttr sets key to val, replacing any existing value.
func (e *Element) SetAttr(key, val string) {
	for i, a := range e.n.Attr {
		if a.Key == key && a.Namespace == "" {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key if present.
func (e *Element) RemoveAttr(key string) {
	for i, a := range e.n.Attr {
		if a.Key == key && a.Namespace == "" {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			return
		}
	}
}

// ClassName returns the raw class attribute.
func (e *Element) ClassName() string {
	v, _ := attr(e.n, "class")
	return v
}

// SetClassName replaces the class attribute.
func (e *Element) SetClassName(class string) {
	e.SetAttr("class", class)
}

// Classes returns the element's classes.
func (e *Element) Classes() []string {
	return strings.Fields(e.ClassName())
}

// HasClass reports whether the element carries class as a whole token.
func (e *Element) HasClass(class string) bool {
	return hasClass(e.n, class)
}

// AddClass adds classes not already present.
func (e *Element) AddClass(classes ...string) {
	current := e.Classes()
	for _, c := range classes {
		if !hasClass(e.n, c) {
			current = append(current, c)
			e.SetClassName(strings.Join(current, " "))
		}
	}
}

// ID returns the id attribute.
func (e *Element) ID() string {
	v, _ := attr(e.n, "id")
	return v
}

// AppendChild attaches child as the last child of e, detaching it first if needed.
func (e *Element) AppendChild(child *Element) {
	if child.n.Parent != nil {
		child.n.Parent.RemoveChild(child.n)
	}
	e.n.AppendChild(child.n)
}

// Parent returns the parent element, or nil when detached.
func (e *Element) Parent() *Element {
	if e.n.Parent == nil {
		return nil
	}
	return &Element{n: e.n.Parent}
}

// Remove detaches the element from its parent. Removing a detached element is a no-op.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(s string) {
	e.clear()
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// SetInnerHTML replaces the element's children with the parsed fragment.
func (e *Element) SetInnerHTML(s string) error {
	nodes, err := html.ParseFragment(strings.NewReader(s), e.n)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	e.clear()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var sb strings.Builder
	walk(e.n, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return sb.String()
}

func (e *Element) clear() {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
