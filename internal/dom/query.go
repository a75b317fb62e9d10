package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Matcher selects element nodes.
type Matcher func(*html.Node) bool

// Tag matches elements by tag name.
func Tag(name string) Matcher {
	name = strings.ToLower(name)
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

// ID matches the element with the given id attribute.
func ID(id string) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && Attr(n, "id") == id
	}
}

// Class matches elements carrying the class name.
func Class(name string) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && HasClass(n, name)
	}
}

// Not inverts m.
func Not(m Matcher) Matcher {
	return func(n *html.Node) bool { return !m(n) }
}

// All matches when every matcher matches.
func All(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one matcher matches.
func Any(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if m(n) {
				return true
			}
		}
		return false
	}
}

// FindAll returns the descendants of root (root excluded) matched by m, in
// document order.
func FindAll(root *html.Node, m Matcher) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// Find returns the first descendant of root matched by m.
func Find(root *html.Node, m Matcher) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if found := Find(c, m); found != nil {
			return found
		}
	}
	return nil
}

// Children returns the direct element children of n matched by m.
func Children(n *html.Node, m Matcher) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (m == nil || m(c)) {
			out = append(out, c)
		}
	}
	return out
}
