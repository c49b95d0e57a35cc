// Package feed builds XML feed of the rendered DocBook document: document
// metadata, one page per rendered chunk, table of contents, single page
// rendering and additional formats.
package feed

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"dbfeed/book"
	"dbfeed/common"
	"dbfeed/docbook"
	"dbfeed/docbook/l10n"
	"dbfeed/toc"
	"dbfeed/xhtml"
)

// Options describe a single feed build.
type Options struct {
	// DocID is the natural document id with language suffix.
	DocID string
	UUID  uuid.UUID
	// SrcLang is the language document was written in, Lang is the
	// language feed is built for.
	SrcLang  string
	Lang     string
	Protocol common.Protocol
	// MediaPath is the site location of document media, doc id is appended
	// to it for page images.
	MediaPath string
	L10n      *l10n.Localizer
	// Now is used for "created" timestamp, defaults to time.Now.
	Now func() time.Time
}

// Context keeps state of a single feed build: lazily loaded listings of
// rendered pages, document metadata and page ids allocated so far. It is
// created per build and is not safe for concurrent use.
type Context struct {
	Options

	Book     *book.Config
	DocType  string
	Version  book.Version
	TOCDepth int
	Scheme   *toc.Scheme
	// Types are class names of rendered blocks becoming toc entries.
	Types []string

	loader *docbook.Loader
	log    *zap.Logger

	srcHTMLDir   string
	transHTMLDir string
	srcFiles     *[]string
	transFiles   *[]string
	srcInfo      *etree.Element
	transInfo    *etree.Element
	usedIDs      map[string]bool
}

// NewContext prepares build context using document build configuration.
func NewContext(cfg *book.Config, opts Options, loader *docbook.Loader, log *zap.Logger) (*Context, error) {
	if len(opts.DocID) == 0 {
		return nil, fmt.Errorf("document id is required")
	}
	if !opts.Protocol.IsValid() {
		return nil, fmt.Errorf("unknown feed protocol %s", opts.Protocol)
	}
	ver, err := cfg.DTDVersion()
	if err != nil {
		return nil, err
	}
	depth, err := cfg.TOCSectionDepth()
	if err != nil {
		return nil, err
	}
	if len(opts.SrcLang) == 0 {
		opts.SrcLang = cfg.Lang()
	}
	if len(opts.Lang) == 0 {
		opts.Lang = opts.SrcLang
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.L10n == nil {
		opts.L10n = l10n.New("", log)
	}

	return &Context{
		Options:      opts,
		Book:         cfg,
		DocType:      strings.ToLower(cfg.Type()),
		Version:      ver,
		TOCDepth:     depth,
		Scheme:       toc.SchemeFor(ver),
		Types:        toc.DefaultTypes(),
		loader:       loader,
		log:          log.Named("feed"),
		srcHTMLDir:   cfg.BuildDir(opts.SrcLang, book.FeedFormat),
		transHTMLDir: cfg.BuildDir(opts.Lang, book.FeedFormat),
		usedIDs:      make(map[string]bool),
	}, nil
}

// IsTranslation reports whether feed is built for language other than the
// source one.
func (c *Context) IsTranslation() bool {
	return c.SrcLang != c.Lang
}

// FeedID is the language independent document id: doc id without language
// suffix, lower cased.
func (c *Context) FeedID() string {
	return strings.ToLower(strings.TrimSuffix(c.DocID, "-"+c.Lang))
}

// SrcHTMLFiles lists rendered source language pages.
func (c *Context) SrcHTMLFiles() ([]string, error) {
	return c.listing(c.srcHTMLDir, &c.srcFiles)
}

// TransHTMLFiles lists rendered pages of the target language.
func (c *Context) TransHTMLFiles() ([]string, error) {
	return c.listing(c.transHTMLDir, &c.transFiles)
}

func (c *Context) listing(dir string, cache **[]string) ([]string, error) {
	if *cache != nil {
		return **cache, nil
	}
	files, err := xhtml.Listing(dir)
	if err != nil {
		return nil, err
	}
	*cache = &files
	return files, nil
}

// hasSrcFile reports whether source language rendering has the file.
// Listing errors are treated as empty listing, they surface when pages are
// loaded.
func (c *Context) hasSrcFile(name string) bool {
	files, err := c.SrcHTMLFiles()
	if err != nil {
		c.log.Debug("Unable to list rendered pages", zap.String("dir", c.srcHTMLDir), zap.Error(err))
		return false
	}
	return lo.Contains(files, name)
}

// HTMLPath resolves rendered page location, target language rendering is
// used for translations unless useTranslation is false.
func (c *Context) HTMLPath(name string, useTranslation bool) string {
	if c.IsTranslation() && useTranslation {
		return filepath.Join(c.transHTMLDir, name)
	}
	return filepath.Join(c.srcHTMLDir, name)
}

// hasPage reports whether page for the chunk was rendered.
func (c *Context) hasPage(chunk string) bool {
	list, dir := c.SrcHTMLFiles, c.srcHTMLDir
	if c.IsTranslation() {
		list, dir = c.TransHTMLFiles, c.transHTMLDir
	}
	files, err := list()
	if err != nil {
		c.log.Debug("Unable to list rendered pages", zap.String("dir", dir), zap.Error(err))
		return false
	}
	return lo.Contains(files, chunk+".html")
}

// PageURLToken is the page identity in v1 feeds.
func (c *Context) PageURLToken(chunk string) string {
	switch chunk {
	case "index":
		return c.DocID
	case "ix01":
		return c.DocID + "-index"
	}
	return c.DocID + "-" + chunk
}

// PageSlug is the page identity in v2 feeds: chunk name, except for the
// first legal notice which gets readable name when it does not clash with
// a rendered page.
func (c *Context) PageSlug(chunk string) string {
	if chunk == "ln01" && !c.hasSrcFile("legal-notice.html") {
		return "legal-notice"
	}
	return chunk
}

// PageLink is PageSlug or PageURLToken depending on protocol.
func (c *Context) PageLink(chunk string) string {
	if c.Protocol == common.ProtocolV2 {
		return c.PageSlug(chunk)
	}
	return c.PageURLToken(chunk)
}

// Info returns document metadata block of the translation (when
// useTranslation is set and this is a translation build) or of the source
// document. Metadata is read from the info file of the resolved xml
// rendering the same way renderer does.
func (c *Context) Info(useTranslation bool) (*etree.Element, error) {
	lang, cache := c.SrcLang, &c.srcInfo
	if c.IsTranslation() && useTranslation {
		lang, cache = c.Lang, &c.transInfo
	}
	if *cache != nil {
		return *cache, nil
	}
	info, err := docbook.LoadInfo(c.loader, c.Book, c.Book.BuildDir(lang, "xml"))
	if err != nil {
		return nil, err
	}
	*cache = info
	return info, nil
}

// InfoValue returns metadata field with DocBook 5 title fallback, or def.
func (c *Context) InfoValue(info *etree.Element, name, def string) string {
	if v, ok := docbook.InfoValue(info, name, c.Version); ok {
		return v
	}
	return def
}

// ReserveID records page id, returns false if it was already used.
func (c *Context) ReserveID(id string) bool {
	if c.usedIDs[id] {
		return false
	}
	c.usedIDs[id] = true
	return true
}

// UniqueID returns base or base with the smallest numeric suffix starting
// from 2 not used yet. Result is not reserved.
func (c *Context) UniqueID(base string) string {
	id := base
	for n := 2; c.usedIDs[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}
