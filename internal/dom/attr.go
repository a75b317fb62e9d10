package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of attribute key, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether attribute key is present.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or adds attribute key.
func SetAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key.
func RemoveAttr(n *html.Node, key string) {
	if n == nil {
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// Data returns the data-<key> attribute.
func Data(n *html.Node, key string) string {
	return Attr(n, "data-"+key)
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries class name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range Classes(n) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds name to the class list when missing.
func AddClass(n *html.Node, name string) {
	if n == nil || HasClass(n, name) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(Attr(n, "class")+" "+name))
}

// RemoveClass removes every occurrence of the given class names.
func RemoveClass(n *html.Node, names ...string) {
	if n == nil || !HasAttr(n, "class") {
		return
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	var kept []string
	for _, c := range Classes(n) {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// Style returns an inline style property value.
func Style(n *html.Node, prop string) string {
	for _, decl := range styleDecls(Attr(n, "style")) {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets an inline style property, keeping the other declarations in
// place.
func SetStyle(n *html.Node, prop, val string) {
	if n == nil {
		return
	}
	decls := styleDecls(Attr(n, "style"))
	found := false
	for i := range decls {
		if decls[i][0] == prop {
			decls[i][1] = val
			found = true
		}
	}
	if !found {
		decls = append(decls, [2]string{prop, val})
	}
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d[0]+": "+d[1])
	}
	SetAttr(n, "style", strings.Join(parts, "; "))
}

func styleDecls(style string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		out = append(out, [2]string{prop, strings.TrimSpace(val)})
	}
	return out
}

// Value returns the current value of a form control. Selects report the
// selected option (or the first one), textareas their text.
func Value(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	switch n.Data {
	case "select":
		options := FindAll(n, Tag("option"))
		for _, opt := range options {
			if HasAttr(opt, "selected") {
				return optionValue(opt)
			}
		}
		if len(options) > 0 {
			return optionValue(options[0])
		}
		return ""
	case "textarea":
		return Text(n)
	default:
		return Attr(n, "value")
	}
}

// SetValue updates the value of a form control.
func SetValue(n *html.Node, val string) {
	if n == nil || n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "select":
		for _, opt := range FindAll(n, Tag("option")) {
			if optionValue(opt) == val {
				SetAttr(opt, "selected", "")
			} else {
				RemoveAttr(opt, "selected")
			}
		}
	case "textarea":
		SetText(n, val)
	default:
		SetAttr(n, "value", val)
	}
}

// SelectOption selects the option of a select whose value is val, appending
// a new selected option when none matches. It reports whether it appended.
func SelectOption(n *html.Node, val string) bool {
	SetValue(n, val)
	if n == nil || n.Type != html.ElementNode || n.Data != "select" || val == "" || Value(n) == val {
		return false
	}
	opt := CreateElement("option", "value", val, "selected", "")
	SetText(opt, val)
	AppendChild(n, opt)
	return true
}

func optionValue(opt *html.Node) string {
	if HasAttr(opt, "value") {
		return Attr(opt, "value")
	}
	return strings.TrimSpace(Text(opt))
}

// SetDisabled toggles the disabled attribute.
func SetDisabled(n *html.Node, disabled bool) {
	if disabled {
		SetAttr(n, "disabled", "")
		return
	}
	RemoveAttr(n, "disabled")
}

// Disabled reports whether the disabled attribute is present.
func Disabled(n *html.Node) bool {
	return HasAttr(n, "disabled")
}
