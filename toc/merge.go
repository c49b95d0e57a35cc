package toc

import (
	"github.com/beevik/etree"

	"dbfeed/utils/xmltree"
)

// MergeSinglePageAnchors matches entries of the single page tree with
// "item" children of parent by position and records anchors of the single
// page rendering as "singlePageAnchor" right after item anchor. Trees may
// diverge, extra entries on either side are ignored. level is the nesting
// level of items.
func MergeSinglePageAnchors(parent *etree.Element, level int, nodes []*Node) {
	items := parent.SelectElements("item")
	for i, n := range nodes {
		if i >= len(items) {
			return
		}
		item := items[i]
		xmltree.AddAfter(item, "anchor", -1, "singlePageAnchor", n.Anchor(), level+1)
		if children := item.SelectElement("children"); children != nil && len(n.Children) > 0 {
			MergeSinglePageAnchors(children, level+2, n.Children)
		}
	}
}
