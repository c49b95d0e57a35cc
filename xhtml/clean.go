package xhtml

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const tocSelector = "div[class*='toc']"

// RemoveTitleBlock removes the leading block title from content, feed
// consumers render page titles themselves. Wrappers holding nothing but the
// title go away with it. It reports whether title was found.
func RemoveTitleBlock(content *goquery.Selection) bool {
	title := content.Find("[class='titlepage'] [class='title']").First()
	if title.Length() == 0 {
		return false
	}
	for {
		parent := title.Parent()
		if parent.Length() == 0 || parent.IsSelection(content) || parent.Children().Length() != 1 {
			break
		}
		title = parent
	}
	title.Remove()
	return true
}

// RemoveTOCs removes generated navigation blocks and returns their number.
func RemoveTOCs(content *goquery.Selection) int {
	tocs := content.Find(tocSelector)
	n := tocs.Length()
	tocs.Remove()
	return n
}

// FirstTOC returns the first generated navigation block.
func FirstTOC(content *goquery.Selection) *goquery.Selection {
	return content.Find(tocSelector).First()
}

// RewriteLinks replaces every href attribute value with result of fn.
func RewriteLinks(content *goquery.Selection, fn func(string) string) {
	content.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		s.SetAttr("href", fn(href))
	})
}

// PrefixMedia prepends prefix to relative image and object sources.
func PrefixMedia(content *goquery.Selection, prefix string) int {
	var n int
	prefixAttr := func(s *goquery.Selection, attr string) {
		v, ok := s.Attr(attr)
		if !ok || !isRelative(v) {
			return
		}
		s.SetAttr(attr, prefix+v)
		n++
	}
	content.Find("img").Each(func(_ int, s *goquery.Selection) { prefixAttr(s, "src") })
	content.Find("object").Each(func(_ int, s *goquery.Selection) { prefixAttr(s, "data") })
	return n
}

func isRelative(link string) bool {
	if len(link) == 0 || strings.HasPrefix(link, "/") || strings.HasPrefix(link, "#") {
		return false
	}
	u, err := url.Parse(link)
	return err == nil && !u.IsAbs()
}

// MediaImages returns images of media objects: img elements and image
// objects (with their img fallbacks) placed directly in mediaobject or
// inlinemediaobject containers.
func MediaImages(content *goquery.Selection) []*goquery.Selection {
	var res []*goquery.Selection
	content.Find("div[class='mediaobject'], span[class='inlinemediaobject']").Each(func(_ int, mo *goquery.Selection) {
		mo.Children().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "img":
				res = append(res, c)
			case "object":
				if !strings.Contains(c.AttrOr("type", ""), "image") {
					return
				}
				res = append(res, c)
				c.ChildrenFiltered("img").Each(func(_ int, fb *goquery.Selection) {
					res = append(res, fb)
				})
			}
		})
	})
	return res
}

// FixRelativeMedia prefixes media images referencing book images or
// common brand images with the site media path.
func FixRelativeMedia(content *goquery.Selection, prefix string) int {
	var n int
	for _, img := range MediaImages(content) {
		attr := "src"
		if goquery.NodeName(img) == "object" {
			attr = "data"
		}
		src := img.AttrOr(attr, "")
		if strings.HasPrefix(src, "images/") || strings.HasPrefix(src, "Common_Content/images/") {
			img.SetAttr(attr, prefix+src)
			n++
		}
	}
	return n
}

// ScrubSinglePage leaves only document content in single page rendering:
// removes page header, navigation blocks, the document title block and
// scripts.
func ScrubSinglePage(content *goquery.Selection) {
	content.Find("p#title").First().Remove()
	RemoveTOCs(content)
	if title := content.Children().Children().Filter("[class='titlepage']").Find("[class='title']").First(); title.Length() > 0 {
		title.Parent().Remove()
	}
	content.Find("script").Remove()
}
