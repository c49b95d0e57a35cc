// Package xhtml loads pages produced by the renderer and prepares their
// content for the feed.
package xhtml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed rendered HTML file.
type Page struct {
	// Name is the file name without directory.
	Name string
	Doc  *goquery.Document
}

// Load reads and parses rendered page.
func Load(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open html page: %w", err)
	}
	defer f.Close()

	p, err := Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return p, nil
}

// Parse parses rendered page content.
func Parse(r io.Reader, name string) (*Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(expandEmptyTags(data)))
	if err != nil {
		return nil, err
	}
	return &Page{Name: name, Doc: doc}, nil
}

var (
	// attribute values may hold '>' and '/' when quoted
	reEmptyTag = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9:_-]*)((?:\s+[^\s=/<>"']+(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]*[^\s"'<>/]))?)*)\s*/>`)
	voidTags   = []string{"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr"}
)

// expandEmptyTags rewrites XML style empty elements (<a id="x"/>) renderer
// produces into start and end tag pairs, HTML parser treats "/>" on non void
// elements as start tag only and would nest following content.
func expandEmptyTags(data []byte) []byte {
	return reEmptyTag.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := reEmptyTag.FindSubmatch(m)
		tag := string(sub[1])
		if slices.Contains(voidTags, strings.ToLower(tag)) {
			return m
		}
		var b bytes.Buffer
		b.WriteByte('<')
		b.Write(sub[1])
		b.Write(bytes.TrimRight(sub[2], " \t\r\n"))
		b.WriteString("></")
		b.Write(sub[1])
		b.WriteByte('>')
		return b.Bytes()
	})
}

// Title returns text of the page head title.
func (p *Page) Title() string {
	return strings.TrimSpace(p.Doc.Find("head > title").First().Text())
}

// Body returns page body.
func (p *Page) Body() *goquery.Selection {
	return p.Doc.Find("body").First()
}

// SinglePageBody returns content container of single page rendering: body
// or, for branded output, the main column inside it.
func (p *Page) SinglePageBody() *goquery.Selection {
	body := p.Body()
	if main := body.ChildrenFiltered("div#chrometwo").ChildrenFiltered("div#main").First(); main.Length() > 0 {
		return main
	}
	return body
}

// Listing returns names of rendered pages in the directory, missing
// directory produces empty listing.
func Listing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to list rendered pages: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
