package feed

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"dbfeed/common"
	"dbfeed/docbook"
	"dbfeed/toc"
	"dbfeed/utils/xmltree"
	"dbfeed/xhtml"
)

// top level elements are children of the document root
const rootLevel = 1

// firstWeight is the weight of the first top level page, more negative
// weights sort earlier.
const firstWeight = -15

// infoFields maps DocBook metadata fields to translatable feed elements.
var infoFields = []struct{ docbook, feed string }{
	{"title", "title"},
	{"productname", "product"},
	{"productnumber", "version"},
	{"subtitle", "subtitle"},
}

// Builder produces feed document from the resolved DocBook source (and its
// translation) and rendered pages.
type Builder struct {
	ctx       *Context
	log       *zap.Logger
	overrides docbook.Overrides

	// chunk maps of the last build
	srcChunks   *docbook.ChunkMap
	transChunks *docbook.ChunkMap
	// rendered pages which became feed pages
	claimed map[string]bool
}

// NewBuilder creates builder for the context. Overrides are consulted when
// naming chunks, they may be nil.
func NewBuilder(ctx *Context, overrides docbook.Overrides) *Builder {
	return &Builder{
		ctx:       ctx,
		log:       ctx.log,
		overrides: overrides,
		claimed:   make(map[string]bool),
	}
}

// Build creates feed document. trans may be nil for source language builds,
// when it is missing for translation build source tree is used for both.
func (b *Builder) Build(src, trans *etree.Document) (*etree.Document, error) {
	if src == nil || src.Root() == nil {
		return nil, errors.New("source document is empty")
	}
	if trans == nil || trans.Root() == nil {
		trans = src
	}

	root := etree.NewElement("document")
	for _, step := range []struct {
		name string
		fn   func(*etree.Element) error
	}{
		{"id", b.addFeedID},
		{"type", b.addType},
		{"lang", b.addLang},
		{"name", b.addName},
		{"metadata", b.addInfoMetadata},
		{"created", b.addCreated},
		{"url slugs", b.addURLSlugs},
	} {
		if err := step.fn(root); err != nil {
			return nil, fmt.Errorf("unable to add %s: %w", step.name, err)
		}
	}

	b.srcChunks = docbook.BuildChunkMap(src.Root(), b.ctx.DocType, b.overrides)
	b.transChunks = b.srcChunks
	if b.ctx.IsTranslation() && trans != src {
		b.transChunks = docbook.BuildChunkMap(trans.Root(), b.ctx.DocType, b.overrides)
	}

	if err := b.addPages(root); err != nil {
		return nil, err
	}
	if b.ctx.Protocol == common.ProtocolV2 {
		if err := b.addTOC(root); err != nil {
			return nil, fmt.Errorf("unable to build table of contents: %w", err)
		}
	}
	b.reportOrphans()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateText("\n")
	doc.SetRoot(root)
	return doc, nil
}

// Chunks returns chunk map used for pages and chunk map used for the table
// of contents by the last build.
func (b *Builder) Chunks() (pages, contents *docbook.ChunkMap) {
	return b.srcChunks, b.transChunks
}

func (b *Builder) addFeedID(root *etree.Element) error {
	xmltree.AddAt(root, 0, "uuid", b.ctx.UUID.String(), rootLevel)
	xmltree.AddAt(root, 1, "id", b.ctx.FeedID(), rootLevel)
	return nil
}

func (b *Builder) addType(root *etree.Element) error {
	xmltree.AddAfter(root, "id", 0, "type", b.ctx.DocType, rootLevel)
	return nil
}

func (b *Builder) addLang(root *etree.Element) error {
	xmltree.AddAfter(root, "id", 0, "lang", b.ctx.Lang, rootLevel, xmltree.Attr("base", b.ctx.SrcLang))
	return nil
}

// addName adds "product version title" name kept for older consumers.
func (b *Builder) addName(root *etree.Element) error {
	info, err := b.ctx.Info(true)
	if err != nil {
		return err
	}
	npv := docbook.NPVFromInfo(info)
	if len(npv.Title) == 0 {
		npv.Title = b.ctx.InfoValue(info, "title", "")
	}
	xmltree.Add(root, "name", npv.Product+" "+npv.Version+" "+npv.Title, rootLevel)
	return nil
}

func (b *Builder) addInfoMetadata(root *etree.Element) error {
	info, err := b.ctx.Info(true)
	if err != nil {
		return err
	}
	srcInfo := info
	if b.ctx.IsTranslation() {
		if srcInfo, err = b.ctx.Info(false); err != nil {
			return err
		}
	}

	for _, f := range infoFields {
		value := b.ctx.InfoValue(info, f.docbook, "")
		base := value
		if b.ctx.IsTranslation() {
			base = b.ctx.InfoValue(srcInfo, f.docbook, "")
		}
		xmltree.Add(root, f.feed, value, rootLevel, xmltree.Attr("base", base))
	}

	xmltree.Add(root, "edition", b.ctx.InfoValue(info, "edition", "1.0"), rootLevel)
	xmltree.Add(root, "abstract", b.ctx.InfoValue(info, "abstract", ""), rootLevel)
	// constant, kept for older consumers
	xmltree.Add(root, "release", "0", rootLevel)
	xmltree.Add(root, "keywords", strings.Join(docbook.Keywords(info), ","), rootLevel)
	return nil
}

func (b *Builder) addCreated(root *etree.Element) error {
	xmltree.Add(root, "created", strconv.FormatInt(b.ctx.Now().Unix(), 10), rootLevel)
	return nil
}

// addURLSlugs adds title, product and version slugs. They are always
// computed from the source language metadata with document configuration
// overrides, so all translations share them.
func (b *Builder) addURLSlugs(root *etree.Element) error {
	if b.ctx.Protocol != common.ProtocolV2 {
		return nil
	}
	info, err := b.ctx.Info(false)
	if err != nil {
		return err
	}
	npv := docbook.NPVFromInfo(info)
	if len(npv.Title) == 0 {
		npv.Title = b.ctx.InfoValue(info, "title", "")
	}
	npv = npv.WithOverrides(b.ctx.Book)

	for _, f := range []struct{ name, value string }{
		{"title", npv.Title},
		{"product", npv.Product},
		{"version", npv.Version},
	} {
		xmltree.AddAfter(root, f.name, -1, f.name+"_slug", docbook.URLSlug(f.value), rootLevel)
	}
	return nil
}

// addPages adds a page for every rendered chunk in document order. All
// pages of a top level chunk family share its weight.
func (b *Builder) addPages(root *etree.Element) error {
	weight := firstWeight
	for _, c := range b.srcChunks.Chunks() {
		tc, _ := b.transChunks.Get(c.Name)
		if err := b.addPageTree(root, c, tc, nil, weight); err != nil {
			return err
		}
		weight++
	}
	return nil
}

func (b *Builder) addPageTree(root *etree.Element, c, tc *docbook.Chunk, parent *etree.Element, weight int) error {
	next := parent
	if b.ctx.hasPage(c.Name) {
		var trans *etree.Element
		if tc != nil {
			trans = tc.Element
		}
		page, err := b.ctx.newPageBuilder(c.Name, c.Element, trans, parent, weight).build()
		if err != nil {
			return err
		}
		xmltree.Insert(root, page, -1, rootLevel)
		b.claimed[c.Name+".html"] = true
		next = page
	} else {
		b.log.Debug("Chunk was not rendered, skipping page", zap.String("chunk", c.Name))
	}

	var transChildren *docbook.ChunkMap
	if tc != nil {
		transChildren = tc.Children
	}
	for _, child := range c.Children.Chunks() {
		tchild, _ := transChildren.Get(child.Name)
		if err := b.addPageTree(root, child, tchild, next, weight); err != nil {
			return err
		}
	}
	return nil
}

// addTOC adds table of contents assembled from rendered pages of the
// target language.
func (b *Builder) addTOC(root *etree.Element) error {
	var tree []*toc.Node
	for _, c := range b.transChunks.Chunks() {
		nodes, err := b.tocTree(c)
		if err != nil {
			return err
		}
		b.fixTOCTree(nodes)
		tree = append(tree, nodes...)
	}

	el := xmltree.Add(root, "toc", "", rootLevel)
	toc.AppendXML(el, rootLevel+1, tree, b.ctx.TOCDepth)
	return nil
}

// tocTree extracts entries of the chunk page, entries of child chunk pages
// become children of the last page entry.
func (b *Builder) tocTree(c *docbook.Chunk) ([]*toc.Node, error) {
	if !b.ctx.hasPage(c.Name) {
		return nil, nil
	}
	name := c.Name + ".html"
	page, err := xhtml.Load(b.ctx.HTMLPath(name, true))
	if err != nil {
		return nil, err
	}

	nodes := b.ctx.Scheme.ExtractContent(page.Doc, name, b.ctx.Types)
	if len(nodes) == 0 {
		return nil, nil
	}
	nodes[0].Href = name

	for _, child := range c.Children.Chunks() {
		sub, err := b.tocTree(child)
		if err != nil {
			return nil, err
		}
		last := nodes[len(nodes)-1]
		last.Children = append(last.Children, sub...)
	}
	return nodes, nil
}

// fixTOCTree strips localized block names from titles and points links to
// page slugs.
func (b *Builder) fixTOCTree(nodes []*toc.Node) {
	toc.Walk(nodes, func(n *toc.Node, _ int) {
		if len(n.Type) > 0 {
			n.Title = b.ctx.L10n.StripBlockName(n.Type, n.Title, b.ctx.Lang)
		}
		n.Href = b.ctx.FixPageLink(n.Href)
	})
}

// reportOrphans logs rendered pages no chunk was planned for, usually a
// sign of renderer chunking rules the planner does not know about.
func (b *Builder) reportOrphans() {
	files, err := b.ctx.SrcHTMLFiles()
	if b.ctx.IsTranslation() {
		files, err = b.ctx.TransHTMLFiles()
	}
	if err != nil {
		return
	}
	var orphans []string
	for _, f := range files {
		if strings.HasSuffix(f, ".html") && !b.claimed[f] {
			orphans = append(orphans, f)
		}
	}
	if len(orphans) == 0 {
		return
	}
	sort.Sort(natural.StringSlice(orphans))
	b.log.Debug("Rendered pages without feed page", zap.Strings("files", orphans))
}
