package toc

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dbfeed/book"
)

// Scheme knows how particular renderer HTML generation marks up blocks and
// navigation lists. It is selected once per build from DocBook version.
type Scheme struct {
	Name string
	// blockTags are HTML elements rendered DocBook blocks are wrapped in.
	blockTags []string
	// rootList is the navigation list element inside toc container.
	rootList string
	navItems func(list *goquery.Selection) []*Node
}

var (
	// HTML4 is XHTML 1.0 output of DocBook 4 stylesheets: blocks are divs
	// and navigation is dl with dt entries and dd holding nested lists.
	HTML4 = &Scheme{Name: "html4", blockTags: []string{"div"}, rootList: "dl", navItems: definitionListItems}
	// HTML5 is output of DocBook 5 stylesheets: blocks are sections or divs
	// and navigation is ul with li entries.
	HTML5 = &Scheme{Name: "html5", blockTags: []string{"section", "div"}, rootList: "ul", navItems: unorderedListItems}
)

// SchemeFor selects scheme for the DocBook version.
func SchemeFor(ver book.Version) *Scheme {
	if ver.AtLeast(5, 0) {
		return HTML5
	}
	return HTML4
}

func (s *Scheme) String() string {
	return s.Name
}

// ExtractNav builds tree from rendered navigation list in the toc
// container. Container without the list produces empty tree.
func (s *Scheme) ExtractNav(container *goquery.Selection) []*Node {
	list := container.ChildrenFiltered(s.rootList).First()
	if list.Length() == 0 {
		return nil
	}
	return s.navItems(list)
}

func definitionListItems(list *goquery.Selection) []*Node {
	var nodes []*Node
	list.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "dt":
			nodes = append(nodes, navEntry(child))
		case "dd":
			// dd follows the dt it belongs to
			if len(nodes) == 0 {
				return
			}
			if nested := child.ChildrenFiltered("dl").First(); nested.Length() > 0 {
				last := nodes[len(nodes)-1]
				last.Children = append(last.Children, definitionListItems(nested)...)
			}
		}
	})
	return nodes
}

func unorderedListItems(list *goquery.Selection) []*Node {
	var nodes []*Node
	list.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
		n := navEntry(item)
		if nested := item.ChildrenFiltered("ul").First(); nested.Length() > 0 {
			n.Children = unorderedListItems(nested)
		}
		nodes = append(nodes, n)
	})
	return nodes
}

func navEntry(item *goquery.Selection) *Node {
	a := item.ChildrenFiltered("span").ChildrenFiltered("a").First()
	href, _ := a.Attr("href")
	return &Node{Title: strings.TrimSpace(a.Text()), Href: href}
}

// ExtractContent builds tree from content of rendered page: every block
// whose class is one of types becomes an entry linking to page (file name
// of the rendered page) with the block anchor. Generated toc blocks are
// ignored and standalone types do not get children.
func (s *Scheme) ExtractContent(doc *goquery.Document, page string, types []string) []*Node {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil
	}
	headTitle := strings.TrimSpace(doc.Find("head > title").First().Text())
	return s.extract(body, page, headTitle, types)
}

func (s *Scheme) extract(parent *goquery.Selection, page, headTitle string, types []string) []*Node {
	var nodes []*Node
	parent.Children().Each(func(_ int, child *goquery.Selection) {
		classes := strings.Fields(child.AttrOr("class", ""))
		if slices.Contains(classes, "toc") {
			return
		}

		typ := matchType(classes, types)
		if len(typ) == 0 || !slices.Contains(s.blockTags, goquery.NodeName(child)) {
			nodes = append(nodes, s.extract(child, page, headTitle, types)...)
			return
		}

		n := &Node{
			Title: blockTitle(child, headTitle),
			Href:  blockLink(child, page),
			Type:  typ,
		}
		if !IsStandalone(typ) {
			n.Children = s.extract(child, page, headTitle, types)
		}
		nodes = append(nodes, n)
	})
	return nodes
}

func matchType(classes, types []string) string {
	for _, c := range classes {
		if slices.Contains(types, c) {
			return c
		}
	}
	return ""
}

func isHeading(_ int, s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// blockTitle returns text of the block heading: title inside the block
// titlepage, heading directly in the block (legal notices have no
// titlepage) or, as a last resort, the page title.
func blockTitle(block *goquery.Selection, headTitle string) string {
	title := block.ChildrenFiltered("[class='titlepage']").Find("[class='title']").FilterFunction(isHeading).First()
	if title.Length() == 0 {
		title = block.ChildrenFiltered("h1,h2,h3,h4,h5,h6").First()
	}
	if title.Length() == 0 {
		return headTitle
	}
	return strings.TrimSpace(title.Text())
}

// BlockID returns anchor of rendered block which could be put on the block
// itself, its title or a leading empty link.
func BlockID(block *goquery.Selection) (string, bool) {
	candidates := []*goquery.Selection{
		block,
		block.Find("[class='titlepage'] [class='title']").First(),
		block.ChildrenFiltered("a").First(),
	}
	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		if id, ok := c.Attr("id"); ok {
			return id, true
		}
	}
	return "", false
}

func blockLink(block *goquery.Selection, page string) string {
	if id, ok := BlockID(block); ok {
		return page + "#" + id
	}
	return page
}
