// Package xmltree builds pretty printed etree output by hand. Feed pages
// carry rendered HTML where whitespace matters, so documents are never
// re-indented as a whole: every structural element gets its own tail.
package xmltree

import (
	"strings"

	"github.com/beevik/etree"
)

// Indent returns newline followed by indentation for the nesting level.
func Indent(level int) string {
	if level < 0 {
		level = 0
	}
	return "\n" + strings.Repeat("  ", level)
}

// New creates element with text value and attributes. Empty value produces
// element without character data.
func New(name, value string, attrs ...etree.Attr) *etree.Element {
	el := etree.NewElement(name)
	for _, a := range attrs {
		el.CreateAttr(a.Key, a.Value)
	}
	if len(value) > 0 {
		el.SetText(value)
	}
	return el
}

// Attr is a shortcut for attribute without namespace.
func Attr(key, value string) etree.Attr {
	return etree.Attr{Key: key, Value: value}
}

// Insert places el among element children of parent at position index,
// negative or out of range index appends. level is the nesting level of el,
// tails of neighbours are adjusted so closing tag of parent stays on its own
// line.
func Insert(parent, el *etree.Element, index, level int) *etree.Element {
	children := parent.ChildElements()
	if len(children) == 0 && len(strings.TrimSpace(parent.Text())) == 0 {
		parent.SetText(Indent(level))
	}

	if index < 0 || index >= len(children) {
		if n := len(children); n > 0 {
			children[n-1].SetTail(Indent(level))
		}
		parent.AddChild(el)
		el.SetTail(Indent(level - 1))
		return el
	}

	parent.InsertChildAt(children[index].Index(), el)
	el.SetTail(Indent(level))
	return el
}

// Add creates element and appends it to parent.
func Add(parent *etree.Element, name, value string, level int, attrs ...etree.Attr) *etree.Element {
	return Insert(parent, New(name, value, attrs...), -1, level)
}

// AddAt creates element and inserts it at element index.
func AddAt(parent *etree.Element, index int, name, value string, level int, attrs ...etree.Attr) *etree.Element {
	return Insert(parent, New(name, value, attrs...), index, level)
}

// AddAfter creates element and inserts it right after the first child
// element named after, when there is no such child defaultIndex is used.
func AddAfter(parent *etree.Element, after string, defaultIndex int, name, value string, level int, attrs ...etree.Attr) *etree.Element {
	return Insert(parent, New(name, value, attrs...), IndexAfter(parent, after, defaultIndex), level)
}

// IndexAfter returns element index following the first child element with
// the name or defaultIndex.
func IndexAfter(parent *etree.Element, name string, defaultIndex int) int {
	for i, c := range parent.ChildElements() {
		if c.Tag == name {
			return i + 1
		}
	}
	return defaultIndex
}

// ChildText returns text of the first child element with the name.
func ChildText(parent *etree.Element, name string) (string, bool) {
	if parent == nil {
		return "", false
	}
	c := parent.SelectElement(name)
	if c == nil {
		return "", false
	}
	return c.Text(), true
}
