// Package toc recovers table of contents trees from rendered DocBook HTML and
// transforms them into feed XML or simplified HTML menus.
package toc

import (
	"net/url"
	"slices"
	"strings"

	"dbfeed/docbook"
)

// Node is a single table of contents entry.
type Node struct {
	Title string
	// Href is relative link to the page, may have fragment.
	Href string
	// Type is the DocBook element name the entry was rendered from, empty
	// for entries recovered from navigation lists.
	Type     string
	Children []*Node
}

// Page returns path part of the link.
func (n *Node) Page() string {
	page, _ := splitHref(n.Href)
	return page
}

// Anchor returns fragment part of the link.
func (n *Node) Anchor() string {
	_, anchor := splitHref(n.Href)
	return anchor
}

func splitHref(href string) (string, string) {
	if u, err := url.Parse(href); err == nil {
		return u.Path, u.Fragment
	}
	page, anchor, _ := strings.Cut(href, "#")
	return page, anchor
}

// Walk visits all nodes depth first.
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int)) {
	for _, n := range nodes {
		fn(n, depth)
		walk(n.Children, depth+1, fn)
	}
}

var (
	// sectionTypes increase section depth used to decide entry visibility.
	sectionTypes = []string{"section", "sect1", "sect2", "sect3", "sect4", "sect5", "topic", "simplesect"}
	// standaloneTypes never have nested entries even if markup does.
	standaloneTypes = []string{"bibliography", "glossary", "index", "legalnotice", "refentry", "reference"}
)

// DefaultSectionDepth is the deepest visible section level when not
// configured.
const DefaultSectionDepth = 2

// DefaultTypes are class names of rendered blocks which become entries:
// everything the renderer may put into separate file.
func DefaultTypes() []string {
	return docbook.ChunkTypes()
}

// IsSection reports whether entry type counts as a section level.
func IsSection(typ string) bool {
	return slices.Contains(sectionTypes, typ)
}

// IsStandalone reports whether entries of the type never have children.
func IsStandalone(typ string) bool {
	return slices.Contains(standaloneTypes, typ)
}
