// Package docbook provides access to DocBook documents: element lookup
// across DocBook 4 and 5 markup, chunk planning matching the renderer
// chunking rules, document loading and metadata extraction.
package docbook

import (
	"strings"

	"github.com/beevik/etree"
)

// Namespaces.
const (
	NS       = "http://docbook.org/ns/docbook"
	XMLNS    = "http://www.w3.org/XML/1998/namespace"
	XLinkNS  = "http://www.w3.org/1999/xlink"
	XInclude = "http://www.w3.org/2001/XInclude"
)

// IsDocBook reports whether element belongs to DocBook vocabulary: DocBook 5
// namespace or no namespace at all (DocBook 4).
func IsDocBook(e *etree.Element) bool {
	ns := e.NamespaceURI()
	return ns == "" || ns == NS
}

// Is reports whether element is DocBook element with given local name.
func Is(e *etree.Element, name string) bool {
	return e != nil && e.Tag == name && IsDocBook(e)
}

// Parent returns parent element or nil for the document root.
func Parent(e *etree.Element) *etree.Element {
	p := e.Parent()
	if p == nil || p.Tag == "" {
		return nil
	}
	return p
}

// ID returns element id, DocBook 4 "id" attribute takes precedence over
// DocBook 5 "xml:id".
func ID(e *etree.Element) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.Attr {
		if a.Space == "" && a.Key == "id" {
			return a.Value, true
		}
	}
	for _, a := range e.Attr {
		if a.Space == "xml" && a.Key == "id" {
			return a.Value, true
		}
	}
	return "", false
}

// SetID replaces element id keeping the attribute flavor.
func SetID(e *etree.Element, id string) {
	for i := range e.Attr {
		if (e.Attr[i].Space == "" || e.Attr[i].Space == "xml") && e.Attr[i].Key == "id" {
			e.Attr[i].Value = id
		}
	}
}

// FindChild returns first child DocBook element with the name.
func FindChild(e *etree.Element, name string) *etree.Element {
	for _, c := range e.ChildElements() {
		if Is(c, name) {
			return c
		}
	}
	return nil
}

// FindDescendant returns first DocBook element with the name in document
// order below e (e itself is not considered).
func FindDescendant(e *etree.Element, name string) *etree.Element {
	for _, c := range e.ChildElements() {
		if Is(c, name) {
			return c
		}
		if found := FindDescendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns all DocBook elements with the name below e in document
// order.
func FindAll(e *etree.Element, name string) []*etree.Element {
	var res []*etree.Element
	Walk(e, func(el *etree.Element) bool {
		if el != e && Is(el, name) {
			res = append(res, el)
		}
		return true
	})
	return res
}

// Walk visits e and all its descendants in document order. Returning false
// from fn skips element subtree.
func Walk(e *etree.Element, fn func(*etree.Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.ChildElements() {
		Walk(c, fn)
	}
}

// Text returns concatenated character data of the element and all its
// descendants, text following the element is not included.
func Text(e *etree.Element) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	collectText(e, &b)
	return b.String()
}

func collectText(e *etree.Element, b *strings.Builder) {
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			b.WriteString(v.Data)
		case *etree.Element:
			collectText(v, b)
		}
	}
}

// FindValue returns trimmed text of the first descendant with the name.
func FindValue(e *etree.Element, name string) (string, bool) {
	if e == nil {
		return "", false
	}
	found := FindDescendant(e, name)
	if found == nil {
		return "", false
	}
	return strings.TrimSpace(Text(found)), true
}

// IsInfo reports whether element is a metadata block: "info" in DocBook 5
// or "bookinfo", "chapterinfo" and similar in DocBook 4.
func IsInfo(e *etree.Element) bool {
	return IsDocBook(e) && strings.HasSuffix(e.Tag, "info")
}

// FindInfo returns metadata block belonging to the element.
func FindInfo(e *etree.Element) *etree.Element {
	for _, c := range e.ChildElements() {
		if (c.Tag == "info" && c.NamespaceURI() == NS) || (c.Tag == e.Tag+"info" && IsDocBook(c)) {
			return c
		}
	}
	return nil
}

// Keywords returns keywords listed in the metadata block.
func Keywords(info *etree.Element) []string {
	if info == nil {
		return nil
	}
	set := FindChild(info, "keywordset")
	if set == nil {
		return nil
	}
	var res []string
	for _, k := range set.ChildElements() {
		if Is(k, "keyword") {
			res = append(res, strings.TrimSpace(Text(k)))
		}
	}
	return res
}
