package docbook

import (
	"fmt"

	"github.com/beevik/etree"

	"dbfeed/book"
)

// NPV is the document name (title), product and version.
type NPV struct {
	Title   string
	Product string
	Version string
}

// NPVFromInfo reads title, product name and product number from metadata
// block.
func NPVFromInfo(info *etree.Element) NPV {
	var npv NPV
	npv.Title, _ = FindValue(info, "title")
	npv.Product, _ = FindValue(info, "productname")
	npv.Version, _ = FindValue(info, "productnumber")
	return npv
}

// WithOverrides replaces values with docname, product and version set in
// document configuration.
func (n NPV) WithOverrides(cfg *book.Config) NPV {
	if v, ok := cfg.Override(book.KeyDocname); ok {
		n.Title = v
	}
	if v, ok := cfg.Override(book.KeyProduct); ok {
		n.Product = v
	}
	if v, ok := cfg.Override(book.KeyVersion); ok {
		n.Version = v
	}
	return n
}

// InfoValue returns value of the metadata field. DocBook 5 allows title and
// subtitle as direct children of the document root, so for these the lookup
// falls back to info element parent.
func InfoValue(info *etree.Element, name string, ver book.Version) (string, bool) {
	if v, ok := FindValue(info, name); ok {
		return v, true
	}
	if !ver.AtLeast(5, 0) || (name != "title" && name != "subtitle") {
		return "", false
	}
	if p := Parent(info); p != nil {
		return FindValue(p, name)
	}
	return "", false
}

// InfoElement returns metadata block of the loaded info file. The file root
// may be the block itself or the document having it.
func InfoElement(root *etree.Element) *etree.Element {
	if IsInfo(root) {
		return root
	}
	if info := FindInfo(root); info != nil {
		return info
	}
	return root
}

// LoadInfo loads metadata block from the info file in the language
// directory. Renderer reads document metadata from this file rather than
// from the main document, so do we.
func LoadInfo(l *Loader, cfg *book.Config, langDir string) (*etree.Element, error) {
	path := cfg.InfoFile(langDir)
	doc, err := l.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load document info: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("document info %s is empty", path)
	}
	return InfoElement(doc.Root()), nil
}

// SourceNPV reads name, product and version of the source document with
// configuration overrides applied and returns them with the source language.
func SourceNPV(l *Loader, cfg *book.Config) (NPV, string, error) {
	lang := cfg.Lang()
	info, err := LoadInfo(l, cfg, cfg.LangDir(lang))
	if err != nil {
		return NPV{}, "", err
	}
	return NPVFromInfo(info).WithOverrides(cfg), lang, nil
}
