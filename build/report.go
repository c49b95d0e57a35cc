package build

import (
	"fmt"
	"os"
	"sort"

	"github.com/beevik/etree"
	"github.com/gosimple/slug"
	"github.com/maruel/natural"

	"dbfeed/archive"
	"dbfeed/book"
	"dbfeed/docbook"
	"dbfeed/feed"
	"dbfeed/utils/debug"
)

// report stores build internals in the debug report when one is requested.
func (s *session) report(b *feed.Builder, doc *etree.Document, outputName string) {
	if s.env.Rpt == nil {
		return
	}
	name := slug.Make(s.docID)

	pages, contents := b.Chunks()
	s.env.Rpt.StoreData(fmt.Sprintf("chunks-%s.txt", name), []byte(dumpChunks(pages)))
	if contents != pages {
		s.env.Rpt.StoreData(fmt.Sprintf("chunks-%s-%s.txt", name, slug.Make(s.opts.Lang)), []byte(dumpChunks(contents)))
	}
	s.env.Rpt.StoreData(fmt.Sprintf("rendered-%s.txt", name), []byte(dumpRendered(s.cfg.BuildDir(s.opts.Lang, book.FeedFormat))))
	if root := doc.Root(); root != nil {
		s.env.Rpt.StoreData(fmt.Sprintf("metadata-%s.txt", name), []byte(dumpMetadata(root)))
		if t := root.SelectElement("toc"); t != nil {
			s.env.Rpt.StoreData(fmt.Sprintf("toc-%s.txt", name), []byte(dumpTOC(t)))
		}
	}
	s.env.Rpt.StoreData(fmt.Sprintf("%s-%s", name, archive.MetadataName), s.metadata().INI())
	s.env.Rpt.Store(fmt.Sprintf("feed-%s.xml", name), outputName)
}

// dumpChunks returns readable tree of planned pages.
func dumpChunks(m *docbook.ChunkMap) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Chunks (%d top level)", m.Len())

	var walk func(m *docbook.ChunkMap, depth int)
	walk = func(m *docbook.ChunkMap, depth int) {
		for _, c := range m.Chunks() {
			id, _ := docbook.ID(c.Element)
			tw.Line(depth, "%s <%s> id=%q", c.Name, c.Element.Tag, id)
			if title := docbook.FindChild(c.Element, "title"); title != nil {
				tw.TextBlock(depth+1, "title", docbook.Text(title))
			}
			walk(c.Children, depth+1)
		}
	}
	walk(m, 1)
	return tw.String()
}

// dumpMetadata returns readable tree of feed document elements except
// pages and bulky content.
func dumpMetadata(root *etree.Element) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Feed metadata")
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "page", "toc", "singlepage":
			tw.Line(1, "<%s> skipped", el.Tag)
		default:
			tw.Element(1, el)
		}
	}
	return tw.String()
}

// dumpTOC returns readable tree of feed table of contents.
func dumpTOC(el *etree.Element) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Table of contents")

	var walk func(parent *etree.Element, depth int)
	walk = func(parent *etree.Element, depth int) {
		for _, item := range parent.SelectElements("item") {
			tw.Line(depth, "%s#%s visible=%s",
				item.SelectElement("page_slug").Text(), item.SelectElement("anchor").Text(), item.SelectAttrValue("visible", ""))
			tw.TextBlock(depth+1, "title", item.SelectElement("title").Text())
			if a := item.SelectElement("singlePageAnchor"); a != nil {
				tw.TextBlock(depth+1, "single page", a.Text())
			}
			if children := item.SelectElement("children"); children != nil {
				walk(children, depth+1)
			}
		}
	}
	walk(el, 1)
	return tw.String()
}

// dumpRendered lists files of the rendered feed directory.
func dumpRendered(dir string) string {
	tw := debug.NewTreeWriter()
	entries, err := os.ReadDir(dir)
	if err != nil {
		tw.Line(0, "Unable to read %s: %v", dir, err)
		return tw.String()
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name()+"/")
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(natural.StringSlice(names))

	tw.Line(0, "Rendered files in %s: %d", dir, len(names))
	for _, n := range names {
		tw.Line(1, "%s", n)
	}
	return tw.String()
}
