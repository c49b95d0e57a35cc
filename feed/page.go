package feed

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dbfeed/common"
	"dbfeed/docbook"
	"dbfeed/utils/xmltree"
	"dbfeed/xhtml"
)

// page elements are children of the document root
const pageLevel = 2

// pageBuilder builds a single "page" element of the feed.
type pageBuilder struct {
	ctx    *Context
	log    *zap.Logger
	chunk  string
	src    *etree.Element
	trans  *etree.Element
	parent *etree.Element
	weight int
}

func (c *Context) newPageBuilder(chunk string, src, trans, parent *etree.Element, weight int) *pageBuilder {
	if trans == nil {
		trans = src
	}
	return &pageBuilder{
		ctx:    c,
		log:    c.log.With(zap.String("page", chunk)),
		chunk:  chunk,
		src:    src,
		trans:  trans,
		parent: parent,
		weight: weight,
	}
}

func (p *pageBuilder) build() (*etree.Element, error) {
	page := etree.NewElement("page")

	xmltree.Add(page, "id", p.id(), pageLevel)
	xmltree.Add(page, "parent", p.parentID(), pageLevel)
	xmltree.Add(page, "weight", strconv.Itoa(p.weight), pageLevel)
	// keywords are not translated
	xmltree.Add(page, "keywords", strings.Join(docbook.Keywords(docbook.FindInfo(p.src)), ","), pageLevel)
	// always empty, kept for older consumers
	xmltree.Add(page, "menu", "", pageLevel)

	if err := p.addContent(page); err != nil {
		return nil, err
	}

	if p.ctx.Protocol == common.ProtocolV2 {
		xmltree.AddAfter(page, "title", -1, "page_slug", p.ctx.PageSlug(p.chunk), pageLevel)
	} else {
		xmltree.Add(page, "url", p.ctx.PageURLToken(p.chunk), pageLevel)
	}
	return page, nil
}

// id returns page id prefixed with document id. Explicit ids of the source
// element or its title are preferred, generated ids are made unique within
// the build.
func (p *pageBuilder) id() string {
	if strings.HasSuffix(p.src.Tag, p.ctx.DocType) {
		return strings.ToLower(p.ctx.DocID)
	}

	id, ok := sourceID(p.src, true)
	if !ok {
		title := p.chunk
		if titleEl := docbook.FindDescendant(p.src, "title"); titleEl != nil &&
			!strings.HasSuffix(p.src.Tag, "preface") && !strings.HasSuffix(p.src.Tag, "legalnotice") {
			title = strings.TrimSpace(docbook.Text(titleEl))
			p.log.Warn("No persistent id in the source markup, using temporary id generated from the title",
				zap.String("title", title))
		}
		if id, ok = sourceID(p.src, false); !ok {
			id = p.ctx.UniqueID(strings.ToLower(docbook.CreateXMLID(title)))
		}
	}

	id = strings.ToLower(id)
	p.ctx.ReserveID(id)
	return strings.ToLower(p.ctx.DocID + "-" + id)
}

// sourceID returns id of the element or its title. With skipGenerated ids
// having "remap" starting with underscore (left by conversion tools) are
// ignored.
func sourceID(el *etree.Element, skipGenerated bool) (string, bool) {
	for _, e := range []*etree.Element{el, docbook.FindDescendant(el, "title")} {
		if e == nil {
			continue
		}
		id, ok := docbook.ID(e)
		if !ok {
			continue
		}
		if skipGenerated && strings.HasPrefix(e.SelectAttrValue("remap", ""), "_") {
			continue
		}
		return id, true
	}
	return "", false
}

func (p *pageBuilder) parentID() string {
	if p.parent == nil {
		return ""
	}
	name := "url"
	if p.ctx.Protocol == common.ProtocolV2 {
		name = "id"
	}
	v, _ := xmltree.ChildText(p.parent, name)
	return v
}

// addContent adds page title and cleaned up body of the rendered page.
func (p *pageBuilder) addContent(page *etree.Element) error {
	name := p.chunk + ".html"
	rendered, err := xhtml.Load(p.ctx.HTMLPath(name, true))
	if err != nil {
		return fmt.Errorf("unable to load page %s: %w", p.chunk, err)
	}

	title := rendered.Title()
	base := title
	if p.ctx.IsTranslation() {
		src, err := xhtml.Load(p.ctx.HTMLPath(name, false))
		if err != nil {
			p.log.Warn("Source language page is not available, translated title is used as base", zap.Error(err))
		} else {
			base = src.Title()
		}
	}
	xmltree.AddAfter(page, "id", 0, "title", title, pageLevel, xmltree.Attr("base", base))

	content := rendered.Body()
	xhtml.RemoveTitleBlock(content)
	xhtml.RemoveTOCs(content)
	xhtml.RewriteLinks(content, p.ctx.FixPageLink)
	xhtml.PrefixMedia(content, p.ctx.MediaPath+p.ctx.DocID+"/")

	body := xmltree.Add(page, "body", "", pageLevel)
	xhtml.AppendContent(body, content)
	return nil
}

// FixPageLink replaces rendered page file name in the link with page slug
// or url token. Links to anything but rendered pages are returned as is.
func (c *Context) FixPageLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || len(u.Path) == 0 || !c.hasSrcFile(u.Path) {
		return link
	}
	chunk := strings.TrimSuffix(u.Path, ".html")
	return strings.Replace(link, u.Path, c.PageLink(chunk), 1)
}
