package feed

import (
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dbfeed/common"
	"dbfeed/toc"
	"dbfeed/utils/xmltree"
	"dbfeed/xhtml"
)

// AddSinglePage appends scrubbed content of the single page rendering as
// "singlepage" element. For v2 feeds anchors of the single page rendering
// are merged into the existing table of contents, for v1 feeds its
// navigation becomes "toc" element with HTML menu.
func (b *Builder) AddSinglePage(doc *etree.Document, path string) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("feed document is empty")
	}
	page, err := xhtml.Load(path)
	if err != nil {
		return fmt.Errorf("unable to load single page rendering: %w", err)
	}
	content := page.SinglePageBody()

	// navigation is removed by scrubbing, get it first
	var nav []*toc.Node
	if b.ctx.Protocol == common.ProtocolV1 {
		nav = b.ctx.Scheme.ExtractNav(xhtml.FirstTOC(content))
	}

	xhtml.ScrubSinglePage(content)
	n := xhtml.FixRelativeMedia(content, b.ctx.MediaPath)
	b.log.Debug("Single page media paths fixed", zap.Int("count", n))

	switch b.ctx.Protocol {
	case common.ProtocolV2:
		if el := root.SelectElement("toc"); el != nil {
			nodes := b.ctx.Scheme.ExtractContent(page.Doc, "index", b.ctx.Types)
			if len(nodes) > 0 {
				// document entry goes to the same level as the rest of content
				first := nodes[0]
				first.Href = "index"
				nodes = append(nodes, first.Children...)
				first.Children = nil
				toc.MergeSinglePageAnchors(el, rootLevel+1, nodes)
			}
		}
	case common.ProtocolV1:
		if len(nav) > 0 {
			el := xmltree.Add(root, "toc", "", rootLevel)
			el.AddChild(toc.ToHTML(nav))
		}
	}

	single := xmltree.Add(root, "singlepage", "", rootLevel)
	xhtml.AppendContent(single, content)
	return nil
}
