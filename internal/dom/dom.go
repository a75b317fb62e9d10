// Package dom is a small headless DOM built on golang.org/x/net/html.
//
// It covers the subset of the browser DOM the table binding needs: lookup by
// id, class and tag matching, attribute/class/inline-style access, form
// control values, node moves and event listeners. Rendering always goes
// through html.Render, so text content is escaped.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event is delivered to listeners by Dispatch.
type Event struct {
	Type   string
	Target *html.Node
}

// Listener handles a dispatched event.
type Listener func(Event)

// Document wraps a parsed HTML tree plus the listeners attached to its nodes.
type Document struct {
	Root      *html.Node
	listeners map[*html.Node]map[string][]Listener
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{Root: root}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ByID returns the first element whose id attribute equals id, or nil.
func (d *Document) ByID(id string) *html.Node {
	if d == nil || d.Root == nil || id == "" {
		return nil
	}
	return Find(d.Root, ID(id))
}

// AddEventListener registers fn for events of type typ on n.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) {
	if n == nil || fn == nil {
		return
	}
	if d.listeners == nil {
		d.listeners = make(map[*html.Node]map[string][]Listener)
	}
	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[string][]Listener)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], fn)
}

// RemoveEventListeners drops every listener registered on n.
func (d *Document) RemoveEventListeners(n *html.Node) {
	delete(d.listeners, n)
}

// Listeners reports how many listeners of type typ are registered on n.
func (d *Document) Listeners(n *html.Node, typ string) int {
	return len(d.listeners[n][typ])
}

// Dispatch runs the listeners of type typ registered on n, in registration
// order. Events do not bubble. It reports whether any listener ran.
func (d *Document) Dispatch(n *html.Node, typ string) bool {
	if d == nil || n == nil {
		return false
	}
	fns := append([]Listener(nil), d.listeners[n][typ]...)
	for _, fn := range fns {
		fn(Event{Type: typ, Target: n})
	}
	return len(fns) > 0
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root)
}

// String renders the document, or the render error text.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return err.Error()
	}
	return buf.String()
}

// CreateElement builds a detached element. attrs are key/value pairs.
func CreateElement(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// AppendChild moves child to the end of parent's children, detaching it from
// its current parent first.
func AppendChild(parent, child *html.Node) {
	if parent == nil || child == nil {
		return
	}
	Detach(child)
	parent.AppendChild(child)
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	if n == nil {
		return
	}
	RemoveChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
