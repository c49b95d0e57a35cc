package build

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"dbfeed/archive"
	"dbfeed/book"
	"dbfeed/common"
	"dbfeed/config"
	"dbfeed/docbook"
	"dbfeed/render"
	"dbfeed/state"
	"dbfeed/validate"
)

const (
	testDocID = "Product-1-Test_Document-en-US"
	bookInfo  = `<bookinfo><title>Test Document</title><subtitle>Sub</subtitle><productname>Product</productname><productnumber>1</productnumber></bookinfo>`
	mainBook  = `<book><title>Test Document</title>
<chapter id="Intro"><title>Intro</title><para>Hello <xref linkend="Intro"/></para></chapter>
</book>`
)

var testUUID = uuid.MustParse("0b5d1c33-5fe6-4b8a-9d55-8a1e9a2f4c11")

func htmlPage(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>` + title + `</title></head><body>` + body + `</body></html>`
}

var renderedPages = map[string]string{
	"index.html": htmlPage("Test Document", `<div class="book"><div class="titlepage"><div><div><h1 class="title">Test Document</h1></div></div></div>`+
		`<div class="toc"><dl class="toc"><dt><span class="chapter"><a href="Intro.html">1. Intro</a></span></dt></dl></div></div>`),
	"Intro.html": htmlPage("Chapter 1. Intro", `<div class="chapter" id="Intro"><div class="titlepage"><div><div><h2 class="title">Chapter 1. Intro</h2></div></div></div><p>Hello</p></div>`),
}

func write(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fakeRenderer records requests and places artifacts the way publican does.
type fakeRenderer struct {
	t        *testing.T
	main     string
	requests []render.Request
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (*render.Artifacts, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	cfg := book.New(req.SourceDir, nil)
	art := &render.Artifacts{Lang: req.Lang, Dirs: make(map[string]string)}
	for _, format := range req.Formats {
		dir := cfg.BuildDir(req.Lang, format)
		switch format {
		case "xml":
			write(f.t, filepath.Join(dir, "Test_Document.xml"), f.main)
			write(f.t, filepath.Join(dir, "Book_Info.xml"), bookInfo)
		case book.FeedFormat:
			for name, data := range renderedPages {
				write(f.t, filepath.Join(dir, name), data)
			}
			write(f.t, filepath.Join(dir, docbook.DocID(docbook.NPV{Title: "Test Document", Product: "Product", Version: "1"}, req.Lang)+".xml"), "<document/>")
			write(f.t, filepath.Join(dir, "skeleton.tar.gz"), "x")
		case "pdf":
			write(f.t, filepath.Join(dir, "Test_Document.pdf"), "%PDF-1.4\n")
		}
		art.Dirs[format] = dir
	}
	return art, nil
}

type fixture struct {
	dir      string
	env      *state.LocalEnv
	renderer *fakeRenderer
}

func newFixture(t *testing.T, cfgFile string) *fixture {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, book.DefaultConfigName), cfgFile)
	write(t, filepath.Join(dir, "en-US", "Book_Info.xml"), bookInfo)
	write(t, filepath.Join(dir, "en-US", "Test_Document.xml"), mainBook)

	env := &state.LocalEnv{
		Cfg: &config.Config{
			Version: 1,
			Feed: config.FeedConfig{
				Protocol:           common.ProtocolV2,
				MediaPath:          "/media/",
				OutputNameTemplate: "{{ .DocID }}.xml",
				Fixups:             []string{"convert-ids", "titleless-prefaces"},
				Validate:           true,
			},
			Render:  config.RenderConfig{Command: "publican"},
			Archive: config.ArchiveConfig{Markup: "publican"},
		},
		Log:   zaptest.NewLogger(t),
		Books: book.NewCache(),
	}
	return &fixture{dir: dir, env: env, renderer: &fakeRenderer{t: t, main: mainBook}}
}

func (f *fixture) options(lang string) Options {
	return Options{SourceDir: f.dir, Lang: lang, UUID: testUUID}
}

func readFeed(t *testing.T, path string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if doc.Root() == nil || doc.Root().Tag != "document" {
		t.Fatalf("unexpected feed root in %s", path)
	}
	return doc.Root()
}

func TestFeed_Source(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\ntype: Book\n")
	opts := f.options("en-US")
	opts.Formats = []string{"pdf"}
	opts.Archive = true

	if err := Feed(context.Background(), f.env, opts, f.renderer); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	if len(f.renderer.requests) != 1 {
		t.Fatalf("%d renderer requests, want 1", len(f.renderer.requests))
	}
	req := f.renderer.requests[0]
	if want := []string{"xml", "pdf", book.FeedFormat}; req.Lang != "en-US" || !reflect.DeepEqual(req.Formats, want) {
		t.Errorf("request = %s %v, want en-US %v", req.Lang, req.Formats, want)
	}

	cfg := book.New(f.dir, nil)
	feedDir := cfg.BuildDir("en-US", book.FeedFormat)
	if _, err := os.Stat(filepath.Join(feedDir, "skeleton.tar.gz")); !os.IsNotExist(err) {
		t.Error("renderer package was not removed")
	}

	root := readFeed(t, filepath.Join(feedDir, testDocID+".xml"))
	for path, want := range map[string]string{
		"uuid":  testUUID.String(),
		"id":    "product-1-test_document",
		"lang":  "en-US",
		"title": "Test Document",
		"pdf":   "Test_Document.pdf",
	} {
		el := root.SelectElement(path)
		if el == nil || el.Text() != want {
			t.Errorf("%s = %v, want %q", path, el, want)
		}
	}
	if len(root.SelectElements("page")) == 0 {
		t.Error("feed has no pages")
	}
	if root.SelectElement("toc") == nil {
		t.Error("feed has no table of contents")
	}

	names, err := archive.Names(filepath.Join(cfg.ArchivesDir(), testDocID+".tar.gz"))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	want := []string{archive.MetadataName, testDocID + ".xml", testDocID + "/Test_Document.pdf"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("archive entries = %v, want %v", names, want)
	}
}

func TestFeed_Overwrite(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	if err := Feed(context.Background(), f.env, f.options(""), f.renderer); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	f.env.SkipRender = true
	err := Feed(context.Background(), f.env, f.options(""), f.renderer)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("error = %v, want existing output", err)
	}

	f.env.Overwrite = true
	if err := Feed(context.Background(), f.env, f.options(""), f.renderer); err != nil {
		t.Fatalf("Feed with overwrite: %v", err)
	}
	if len(f.renderer.requests) != 1 {
		t.Errorf("renderer called %d times with rendering skipped", len(f.renderer.requests))
	}
}

func TestFeed_Translation(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	if err := Feed(context.Background(), f.env, f.options("de-DE"), f.renderer); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	var got []string
	for _, r := range f.renderer.requests {
		got = append(got, fmt.Sprintf("%s:%s", r.Lang, strings.Join(r.Formats, ",")))
	}
	if want := []string{"en-US:xml,drupal-book", "de-DE:xml,drupal-book"}; !reflect.DeepEqual(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}

	cfg := book.New(f.dir, nil)
	root := readFeed(t, filepath.Join(cfg.BuildDir("de-DE", book.FeedFormat), "Product-1-Test_Document-de-DE.xml"))
	lang := root.SelectElement("lang")
	if lang.Text() != "de-DE" || lang.SelectAttrValue("base", "") != "en-US" {
		t.Errorf("lang = %q base %q", lang.Text(), lang.SelectAttrValue("base", ""))
	}
}

func TestFeed_TranslationArchive(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	opts := f.options("de-DE")
	opts.Archive = true
	if err := Feed(context.Background(), f.env, opts, f.renderer); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	cfg := book.New(f.dir, nil)
	var meta string
	err := archive.Walk(filepath.Join(cfg.ArchivesDir(), "Product-1-Test_Document-de-DE.tar.gz"), archive.MetadataName,
		func(_ string, _ *tar.Header, r io.Reader) error {
			data, err := io.ReadAll(r)
			meta = string(data)
			return err
		})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !strings.Contains(meta, "[source]\nlang = en-US\n") {
		t.Errorf("metadata source language is not en-US:\n%s", meta)
	}
}

func TestFeed_RenderFailure(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	f.renderer.err = fmt.Errorf("%w: exit status 1", render.ErrRenderer)
	if err := Feed(context.Background(), f.env, f.options(""), f.renderer); !errors.Is(err, render.ErrRenderer) {
		t.Fatalf("error = %v, want renderer failure", err)
	}
}

func TestFeed_Invalid(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	f.renderer.main = `<book><title>Test Document</title><chapter id="a"/><chapter id="a"><para><xref linkend="none"/></para></chapter></book>`
	err := Feed(context.Background(), f.env, f.options(""), f.renderer)
	if !errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("error = %v, want validation failure", err)
	}
	cfg := book.New(f.dir, nil)
	if _, err := os.Stat(filepath.Join(cfg.BuildDir("en-US", book.FeedFormat), testDocID+".xml")); !os.IsNotExist(err) {
		t.Error("feed written for invalid document")
	}
}

func TestFeed_TypeMismatch(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\ntype: Article\n")
	write(t, filepath.Join(f.dir, "en-US", "Article_Info.xml"), bookInfo)
	err := Feed(context.Background(), f.env, f.options(""), f.renderer)
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("error = %v, want type mismatch", err)
	}
	if len(f.renderer.requests) != 0 {
		t.Error("renderer called for mismatched document")
	}
}

func TestFeed_NoConfig(t *testing.T) {
	f := newFixture(t, "")
	if err := os.Remove(filepath.Join(f.dir, book.DefaultConfigName)); err != nil {
		t.Fatal(err)
	}
	if err := Feed(context.Background(), f.env, f.options(""), f.renderer); !errors.Is(err, book.ErrNoConfig) {
		t.Fatalf("error = %v, want missing configuration", err)
	}

	opts := f.options("")
	opts.DocType = "book"
	if err := Feed(context.Background(), f.env, opts, f.renderer); err != nil {
		t.Fatalf("Feed with doctype: %v", err)
	}
}

func TestFeed_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	opts := f.options("")
	opts.Formats = []string{"html"}
	if err := Feed(context.Background(), f.env, opts, f.renderer); err == nil {
		t.Fatal("expected error for html attached to feed")
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	if err := Validate(context.Background(), f.env, f.options("fr-FR"), f.renderer); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, r := range f.renderer.requests {
		if !reflect.DeepEqual(r.Formats, []string{"xml"}) {
			t.Errorf("%s rendered %v, want xml only", r.Lang, r.Formats)
		}
	}
	if len(f.renderer.requests) != 2 {
		t.Errorf("%d renderer requests, want 2", len(f.renderer.requests))
	}
}

func TestOutputPath(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	s, err := newSession(f.env, f.options(""), f.renderer, f.env.Log)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	dir := s.cfg.BuildDir("en-US", book.FeedFormat)

	for _, tc := range []struct {
		tmpl string
		want string
	}{
		{"{{ .DocID }}.xml", testDocID + ".xml"},
		{"{{ .Product | lower }}-{{ .Version }}-{{ .Protocol }}", "product-1-v2.xml"},
		{"{{ .Title }}/{{ .Lang }}.xml", "Test Documenten-US.xml"},
		{"{{ .Missing", testDocID + ".xml"},
		{"", testDocID + ".xml"},
	} {
		f.env.Cfg.Feed.OutputNameTemplate = tc.tmpl
		if got := s.outputPath(); got != filepath.Join(dir, tc.want) {
			t.Errorf("%q: output = %s, want %s", tc.tmpl, got, tc.want)
		}
	}
}

func TestFeed_Report(t *testing.T) {
	f := newFixture(t, "xml_lang: en-US\n")
	dst := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&config.ReporterConfig{Destination: dst}).Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	f.env.Rpt = rpt
	if err := Feed(context.Background(), f.env, f.options(""), f.renderer); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	for _, prefix := range []string{"chunks-", "rendered-", "metadata-", "toc-", "feed-"} {
		if !slices.ContainsFunc(names, func(n string) bool { return strings.HasPrefix(n, prefix) }) {
			t.Errorf("report has no %s entry: %v", prefix, names)
		}
	}
	if !slices.ContainsFunc(names, func(n string) bool { return strings.HasSuffix(n, archive.MetadataName) }) {
		t.Errorf("report has no %s: %v", archive.MetadataName, names)
	}
}

func TestDumpChunks(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(mainBook); err != nil {
		t.Fatal(err)
	}
	m := docbook.BuildChunkMap(doc.Root(), "book", nil)
	got := dumpChunks(m)
	for _, want := range []string{"Chunks (2 top level)\n", "  index <book> id=\"\"\n", "    title: \"Test Document\"\n", "  Intro <chapter> id=\"Intro\"\n", "    title: \"Intro\"\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("dump misses %q:\n%s", want, got)
		}
	}
}
