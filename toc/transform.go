package toc

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"dbfeed/utils/xmltree"
)

// AppendXML adds feed representation of the tree to parent as "item"
// elements at the nesting level. Entry is visible when number of section
// levels down to and including it does not exceed maxDepth, negative
// maxDepth selects DefaultSectionDepth.
func AppendXML(parent *etree.Element, level int, nodes []*Node, maxDepth int) {
	if maxDepth < 0 {
		maxDepth = DefaultSectionDepth
	}
	appendItems(parent, level, nodes, 0, maxDepth)
}

// ToXML returns feed representation of the tree wrapped in "children"
// element.
func ToXML(nodes []*Node, maxDepth int) *etree.Element {
	children := etree.NewElement("children")
	AppendXML(children, 1, nodes, maxDepth)
	return children
}

func appendItems(parent *etree.Element, level int, nodes []*Node, depth, maxDepth int) {
	for _, n := range nodes {
		current := depth
		if IsSection(n.Type) {
			current++
		}

		page, anchor := splitHref(n.Href)
		item := xmltree.Add(parent, "item", "", level, xmltree.Attr("visible", strconv.FormatBool(current <= maxDepth)))
		xmltree.Add(item, "title", n.Title, level+1)
		xmltree.Add(item, "page_slug", page, level+1)
		xmltree.Add(item, "anchor", anchor, level+1)
		if len(n.Children) > 0 {
			children := xmltree.Add(item, "children", "", level+1)
			appendItems(children, level+2, n.Children, current, maxDepth)
		}
	}
}

// ToHTML returns simplified navigation menu for the tree: ordered list with
// "first", "last", "children" and "leaf" classes on entries.
func ToHTML(nodes []*Node) *etree.Element {
	menu := etree.NewElement("ol")
	menu.CreateAttr("class", "menu")
	for i, n := range nodes {
		var classes []string
		if i == 0 {
			classes = append(classes, "first")
		}
		if i == len(nodes)-1 {
			classes = append(classes, "last")
		}
		if len(n.Children) > 0 {
			classes = append(classes, "children")
		} else {
			classes = append(classes, "leaf")
		}

		li := menu.CreateElement("li")
		li.CreateAttr("class", strings.Join(classes, " "))
		a := li.CreateElement("a")
		a.CreateAttr("href", n.Href)
		a.SetText(n.Title)
		if len(n.Children) > 0 {
			li.AddChild(ToHTML(n.Children))
		}
	}
	return menu
}
