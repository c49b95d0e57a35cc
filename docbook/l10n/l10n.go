// Package l10n strips localized block names ("Chapter", "Part") from
// rendered titles using DocBook XSL localization templates.
package l10n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dbfeed/common"
)

// NS is DocBook XSL localization namespace.
const NS = "http://docbook.sourceforge.net/xmlns/l10n/1.0"

//go:embed data/*.xml
var embedded embed.FS

const (
	contextTitle         = "title"
	contextTitleNumbered = "title-numbered"
)

// catalog keeps templates by context and block name.
type catalog map[string]map[string]string

type matcher struct {
	re       *regexp.Regexp
	numbered bool
}

// Localizer caches loaded catalogs and compiled template expressions. It is
// not safe for concurrent use.
type Localizer struct {
	dir      string
	log      *zap.Logger
	catalogs map[string]catalog
	matchers map[string]*matcher
}

// New creates localizer. When dir is not empty it is treated as DocBook XSL
// root and its "common/{lang}.xml" files take precedence over built in data.
func New(dir string, log *zap.Logger) *Localizer {
	return &Localizer{
		dir:      dir,
		log:      log.Named("l10n"),
		catalogs: make(map[string]catalog),
		matchers: make(map[string]*matcher),
	}
}

// StripBlockName removes localized block name from rendered title leaving
// optional number and the title text: "Chapter 1. Installation" becomes
// "1. Installation". Title is returned unchanged when there is no template
// for the language and block type or the title does not match it.
func (l *Localizer) StripBlockName(blockType, title, lang string) string {
	blockType = strings.ToLower(blockType)
	key := langKey(lang)

	m, err := l.matcher(key, blockType)
	if err != nil {
		l.log.Debug("Unable to strip block name from title",
			zap.String("lang", lang), zap.String("type", blockType), zap.Error(err))
		return title
	}
	match := m.re.FindStringSubmatch(title)
	if match == nil {
		return title
	}
	text := match[m.re.SubexpIndex("text")]
	if m.numbered {
		return match[m.re.SubexpIndex("num")] + ". " + text
	}
	return text
}

// Template returns the template used for block type, numbered template
// takes precedence.
func (l *Localizer) Template(lang, blockType string) (string, error) {
	cat, err := l.catalog(langKey(lang))
	if err != nil {
		return "", err
	}
	for _, ctx := range []string{contextTitleNumbered, contextTitle} {
		if t, ok := cat[ctx][blockType]; ok {
			return t, nil
		}
	}
	return "", fmt.Errorf("no title template for %s", blockType)
}

func langKey(lang string) string {
	if len(lang) == 0 {
		return "en"
	}
	return common.BaseLang(lang)
}

func (l *Localizer) matcher(lang, blockType string) (*matcher, error) {
	key := lang + "/" + blockType
	if m, ok := l.matchers[key]; ok {
		if m == nil {
			return nil, errors.New("no usable template")
		}
		return m, nil
	}
	tmpl, err := l.Template(lang, blockType)
	if err != nil {
		l.matchers[key] = nil
		return nil, err
	}
	m, err := compileTemplate(tmpl)
	if err != nil {
		l.matchers[key] = nil
		return nil, err
	}
	l.matchers[key] = m
	return m, nil
}

var reTemplateSpace = regexp.MustCompile(`[\s\p{Z}]+`)

// compileTemplate turns template like "Chapter&#160;%n.&#160;%t" into
// anchored expression capturing number and text, any whitespace in template
// matches any whitespace in title.
func compileTemplate(tmpl string) (*matcher, error) {
	if !strings.Contains(tmpl, "%t") {
		return nil, fmt.Errorf("template %q has no title placeholder", tmpl)
	}
	expr := regexp.QuoteMeta(tmpl)
	expr = reTemplateSpace.ReplaceAllString(expr, `[\s\p{Z}]+`)
	expr = strings.Replace(expr, "%n", `(?P<num>[^\s\p{Z}]+?)`, 1)
	expr = strings.Replace(expr, "%t", `(?P<text>.+?)`, 1)
	// remaining placeholders ("%s" and alike) match anything
	expr = strings.ReplaceAll(expr, "%n", `.*?`)
	expr = strings.ReplaceAll(expr, "%t", `.*?`)

	re, err := regexp.Compile(`(?s)^` + expr + `$`)
	if err != nil {
		return nil, fmt.Errorf("bad template %q: %w", tmpl, err)
	}
	return &matcher{re: re, numbered: strings.Contains(tmpl, "%n")}, nil
}

func (l *Localizer) catalog(lang string) (catalog, error) {
	if cat, ok := l.catalogs[lang]; ok {
		if cat == nil {
			return nil, fmt.Errorf("no localization for %q", lang)
		}
		return cat, nil
	}
	data, err := l.read(lang)
	if err != nil {
		l.catalogs[lang] = nil
		return nil, err
	}
	cat, err := parseCatalog(data)
	if err != nil {
		l.catalogs[lang] = nil
		return nil, fmt.Errorf("unable to parse localization for %q: %w", lang, err)
	}
	l.catalogs[lang] = cat
	return cat, nil
}

func (l *Localizer) read(lang string) ([]byte, error) {
	if len(l.dir) > 0 {
		data, err := os.ReadFile(filepath.Join(l.dir, "common", lang+".xml"))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		l.log.Debug("Localization not found in external directory, using built in", zap.String("lang", lang))
	}
	data, err := fs.ReadFile(embedded, path.Join("data", lang+".xml"))
	if err != nil {
		return nil, fmt.Errorf("no localization for %q: %w", lang, err)
	}
	return data, nil
}

func parseCatalog(data []byte) (catalog, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "l10n" || root.NamespaceURI() != NS {
		return nil, errors.New("not a localization file")
	}
	cat := make(catalog)
	for _, ctx := range root.ChildElements() {
		if ctx.Tag != "context" || ctx.NamespaceURI() != NS {
			continue
		}
		name := ctx.SelectAttrValue("name", "")
		templates := make(map[string]string)
		for _, t := range ctx.ChildElements() {
			if t.Tag != "template" || t.NamespaceURI() != NS {
				continue
			}
			templates[t.SelectAttrValue("name", "")] = t.SelectAttrValue("text", "")
		}
		cat[name] = templates
	}
	return cat, nil
}
