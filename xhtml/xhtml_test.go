package xhtml

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

func mustPage(t *testing.T, data string) *Page {
	t.Helper()
	p, err := Parse(strings.NewReader(data), "page.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func serialize(t *testing.T, el *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(el)
	s, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return s
}

func TestExpandEmptyTags(t *testing.T) {
	tests := []struct{ in, want string }{
		{`<a id="x"/>`, `<a id="x"></a>`},
		{`<span class="a" />`, `<span class="a"></span>`},
		{`<div/>`, `<div></div>`},
		{`<br/>`, `<br/>`},
		{`<img src="a.png" />`, `<img src="a.png" />`},
		{`<p>text</p>`, `<p>text</p>`},
		{`<a title="a > b" id="x"/>tail`, `<a title="a > b" id="x"></a>tail`},
		{`<a href='/docs/'/>`, `<a href='/docs/'></a>`},
		{`<a name=top/>`, `<a name=top></a>`},
	}
	for _, tt := range tests {
		if got := string(expandEmptyTags([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEmptyTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseXHTML(t *testing.T) {
	p := mustPage(t, `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>
 Chapter 1. Overview </title></head>
<body><div class="chapter"><a id="x"/><p>para</p><br/></div></body></html>`)

	if p.Name != "page.html" {
		t.Errorf("Name = %q", p.Name)
	}
	if got := p.Title(); got != "Chapter 1. Overview" {
		t.Errorf("Title() = %q", got)
	}
	if n := p.Doc.Find("a#x").Children().Length(); n != 0 {
		t.Errorf("empty anchor swallowed %d elements", n)
	}
	if n := p.Doc.Find("div.chapter > p").Length(); n != 1 {
		t.Errorf("paragraph is not a chapter child")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch01.html")
	if err := os.WriteFile(path, []byte(`<html><head><title>T</title></head><body></body></html>`), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "ch01.html" || p.Title() != "T" {
		t.Fatalf("unexpected page %q %q", p.Name, p.Title())
	}
	if _, err := Load(filepath.Join(dir, "missing.html")); err == nil {
		t.Fatal("expected error for missing page")
	}
}

func TestRemoveTitleBlock(t *testing.T) {
	p := mustPage(t, `<html><body><div class="chapter"><div class="titlepage"><div><div><h2 class="title">T</h2></div></div></div><p>x</p></div></body></html>`)
	if !RemoveTitleBlock(p.Body()) {
		t.Fatal("title not found")
	}
	if p.Doc.Find(".titlepage").Length() != 0 {
		t.Fatal("title block still present")
	}
	if p.Doc.Find("div.chapter > p").Length() != 1 {
		t.Fatal("content removed with title")
	}

	// body itself is never removed
	p = mustPage(t, `<html><body><div class="titlepage"><h1 class="title">T</h1></div></body></html>`)
	RemoveTitleBlock(p.Body())
	if p.Body().Length() != 1 || p.Doc.Find("h1").Length() != 0 {
		t.Fatal("unexpected result for body with a single title block")
	}

	p = mustPage(t, `<html><body><p>no title</p></body></html>`)
	if RemoveTitleBlock(p.Body()) {
		t.Fatal("title reported for page without one")
	}
}

func TestRemoveTOCs(t *testing.T) {
	p := mustPage(t, `<html><body><div class="toc"><dl></dl></div><div class="chapter"><div class="toc"></div><p>x</p></div><div class="other"></div></body></html>`)
	if n := RemoveTOCs(p.Body()); n != 2 {
		t.Fatalf("removed %d tocs, want 2", n)
	}
	if p.Doc.Find("div.other").Length() != 1 || p.Doc.Find("p").Length() != 1 {
		t.Fatal("unrelated content removed")
	}
}

func TestRewriteLinksAndMedia(t *testing.T) {
	p := mustPage(t, `<html><body>
<a href="ch02.html#x">x</a><a href="http://example.com/">e</a>
<img src="images/a.png"/><img src="http://example.com/b.png"/><img src="/abs.png"/>
<object data="images/c.svg" type="image/svg+xml"></object>
</body></html>`)

	RewriteLinks(p.Body(), func(href string) string { return "fixed:" + href })
	var hrefs []string
	p.Doc.Find("a").Each(func(_ int, s *goquery.Selection) { hrefs = append(hrefs, s.AttrOr("href", "")) })
	if !slices.Equal(hrefs, []string{"fixed:ch02.html#x", "fixed:http://example.com/"}) {
		t.Fatalf("unexpected links %v", hrefs)
	}

	if n := PrefixMedia(p.Body(), "/media/doc/"); n != 2 {
		t.Fatalf("prefixed %d sources, want 2", n)
	}
	var srcs []string
	p.Doc.Find("img").Each(func(_ int, s *goquery.Selection) { srcs = append(srcs, s.AttrOr("src", "")) })
	if !slices.Equal(srcs, []string{"/media/doc/images/a.png", "http://example.com/b.png", "/abs.png"}) {
		t.Fatalf("unexpected image sources %v", srcs)
	}
	if v := p.Doc.Find("object").AttrOr("data", ""); v != "/media/doc/images/c.svg" {
		t.Fatalf("object data = %q", v)
	}
}

func TestFixRelativeMedia(t *testing.T) {
	p := mustPage(t, `<html><body>
<div class="mediaobject"><img src="images/a.png"/></div>
<span class="inlinemediaobject"><object type="image/svg+xml" data="Common_Content/images/b.svg"><img src="images/b.png"/></object></span>
<div class="mediaobject"><img src="other/c.png"/></div>
<img src="images/outside.png"/>
</body></html>`)

	if n := len(MediaImages(p.Body())); n != 4 {
		t.Fatalf("found %d media images, want 4", n)
	}
	if n := FixRelativeMedia(p.Body(), "/media/"); n != 3 {
		t.Fatalf("fixed %d media images, want 3", n)
	}
	if v := p.Doc.Find("object").AttrOr("data", ""); v != "/media/Common_Content/images/b.svg" {
		t.Fatalf("object data = %q", v)
	}
	if p.Doc.Find(`img[src="images/outside.png"]`).Length() != 1 {
		t.Fatal("image outside of media object changed")
	}
	if p.Doc.Find(`img[src="other/c.png"]`).Length() != 1 {
		t.Fatal("image outside of images directory changed")
	}
}

func TestScrubSinglePage(t *testing.T) {
	p := mustPage(t, `<html><body><p id="title">Header</p>
<div class="book"><div class="titlepage"><div><h1 class="title">Book</h1></div><p class="sub">sub</p></div>
<div class="toc"><dl></dl></div><div class="chapter">C</div></div>
<script>x()</script></body></html>`)

	content := p.SinglePageBody()
	ScrubSinglePage(content)
	for _, sel := range []string{"p#title", "div.toc", "h1", "script"} {
		if p.Doc.Find(sel).Length() != 0 {
			t.Errorf("%s not removed", sel)
		}
	}
	for _, sel := range []string{"div.chapter", "p.sub"} {
		if p.Doc.Find(sel).Length() != 1 {
			t.Errorf("%s removed", sel)
		}
	}
}

func TestSinglePageBody(t *testing.T) {
	p := mustPage(t, `<html><body><div id="chrometwo"><div id="main"><p>content</p></div></div></body></html>`)
	if id := p.SinglePageBody().AttrOr("id", ""); id != "main" {
		t.Fatalf("SinglePageBody() id = %q", id)
	}
	p = mustPage(t, `<html><body><p>content</p></body></html>`)
	if name := goquery.NodeName(p.SinglePageBody()); name != "body" {
		t.Fatalf("SinglePageBody() = %q", name)
	}
}

func TestAppendContent(t *testing.T) {
	p := mustPage(t, `<html><body><p class="x">a <b>b</b> &amp; c</p><!-- note -->tail</body></html>`)
	body := etree.NewElement("body")
	AppendContent(body, p.Body())
	want := `<body><p class="x">a <b>b</b> &amp; c</p><!-- note -->tail</body>`
	if got := serialize(t, body); got != want {
		t.Fatalf("AppendContent:\n%s\nwant:\n%s", got, want)
	}
}

func TestAppendContent_XMLSafe(t *testing.T) {
	p := mustPage(t, "<html><body><p title=\"a\x01b\">x\x0by</p><!-- a -- b ---></body></html>")
	body := etree.NewElement("body")
	AppendContent(body, p.Body())
	want := `<body><p title="ab">xy</p><!-- a - - b - --></body>`
	if got := serialize(t, body); got != want {
		t.Fatalf("AppendContent:\n%s\nwant:\n%s", got, want)
	}
	if err := etree.NewDocument().ReadFromString(want); err != nil {
		t.Fatalf("result is not well formed: %v", err)
	}
}

func TestToElement(t *testing.T) {
	p := mustPage(t, `<html><body><ol class="menu"><li><a href="x">X</a></li></ol></body></html>`)
	el := ToElement(p.Doc.Find("ol"))
	if el == nil || el.Parent() != nil {
		t.Fatal("expected detached element")
	}
	if got := serialize(t, el); got != `<ol class="menu"><li><a href="x">X</a></li></ol>` {
		t.Fatalf("ToElement = %s", got)
	}
	if ToElement(p.Doc.Find("table")) != nil {
		t.Fatal("expected nil for empty selection")
	}
}

func TestListing(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"index.html", "ch01.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "images"), 0755); err != nil {
		t.Fatal(err)
	}
	names, err := Listing(dir)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"ch01.html", "index.html"}) {
		t.Fatalf("Listing() = %v", names)
	}
	names, err = Listing(filepath.Join(dir, "missing"))
	if err != nil || len(names) != 0 {
		t.Fatalf("Listing(missing) = %v, %v", names, err)
	}
}
