package xhtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// AppendContent copies child nodes of the selected elements into parent:
// elements, text and comments, in document order.
func AppendContent(parent *etree.Element, content *goquery.Selection) {
	for _, n := range content.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendNode(parent, c)
		}
	}
}

// ToElement converts the first selected element with its subtree.
func ToElement(sel *goquery.Selection) *etree.Element {
	if sel.Length() == 0 || sel.Nodes[0].Type != html.ElementNode {
		return nil
	}
	holder := etree.NewElement("holder")
	appendNode(holder, sel.Nodes[0])
	el := holder.ChildElements()[0]
	holder.RemoveChild(el)
	return el
}

func appendNode(parent *etree.Element, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		parent.AddChild(etree.NewText(xmlChars(n.Data)))
	case html.CommentNode:
		parent.CreateComment(commentText(n.Data))
	case html.ElementNode:
		el := parent.CreateElement(n.Data)
		for _, a := range n.Attr {
			if len(a.Namespace) > 0 {
				el.CreateAttr(a.Namespace+":"+a.Key, xmlChars(a.Val))
			} else {
				el.CreateAttr(a.Key, xmlChars(a.Val))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendNode(el, c)
		}
	}
}

// xmlChars drops characters XML 1.0 does not allow.
func xmlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE || r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}

// commentText makes HTML comment valid XML comment: no "--" inside and no
// trailing '-'.
func commentText(s string) string {
	s = xmlChars(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	return s
}
