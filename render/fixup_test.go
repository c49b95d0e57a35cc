package render

import (
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"
)

func mustDocument(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestFixConvertedIDs(t *testing.T) {
	doc := mustDocument(t, `<book xmlns="http://docbook.org/ns/docbook" xmlns:xml="http://www.w3.org/XML/1998/namespace">
<chapter xml:id="ch::one"><para><xref linkend="ch::one"/><link linkend="ok" endterm="sec:a">x</link></para>
<section xml:id="sec:a"/><section xml:id="ok"/></chapter></book>`)
	if n := FixConvertedIDs(doc.Root()); n != 2 {
		t.Fatalf("changed %d ids, want 2", n)
	}
	if got := doc.FindElement("//chapter").SelectAttrValue("xml:id", ""); got != "ch-one" {
		t.Errorf("chapter id = %q", got)
	}
	if got := doc.FindElement("//xref").SelectAttrValue("linkend", ""); got != "ch-one" {
		t.Errorf("xref linkend = %q", got)
	}
	link := doc.FindElement("//link")
	if link.SelectAttrValue("linkend", "") != "ok" || link.SelectAttrValue("endterm", "") != "sec-a" {
		t.Errorf("link references = %v", link.Attr)
	}
	if n := FixConvertedIDs(doc.Root()); n != 0 {
		t.Errorf("second pass changed %d ids", n)
	}
}

func TestFixUnconvertedXrefs(t *testing.T) {
	doc := mustDocument(t, `<book xmlns="http://docbook.org/ns/docbook" xmlns:xlink="http://www.w3.org/1999/xlink"><para>
<link xlink:href="../ch-mtu.xml#sec-mtu">Test</link>
<link xlink:href="../ch-mtu.xml#sec-other">../ch-mtu.xml</link>
<link xlink:href="http://example.com/a.xml#x">site</link>
<link xlink:href="notes.txt">notes</link>
</para></book>`)
	if n := FixUnconvertedXrefs(doc.Root()); n != 2 {
		t.Fatalf("changed %d links, want 2", n)
	}
	links := doc.FindElements("//link")
	if len(links) != 3 {
		t.Fatalf("%d links left, want 3", len(links))
	}
	if links[0].SelectAttrValue("linkend", "") != "sec-mtu" || links[0].SelectAttr("xlink:href") != nil {
		t.Errorf("link attributes = %v", links[0].Attr)
	}
	if links[0].Text() != "Test" {
		t.Errorf("link text = %q", links[0].Text())
	}
	xref := doc.FindElement("//xref")
	if xref == nil || xref.SelectAttrValue("linkend", "") != "sec-other" || len(xref.Child) != 0 {
		t.Fatalf("xref not created from path link")
	}
	if links[1].SelectAttrValue("xlink:href", "") != "http://example.com/a.xml#x" {
		t.Error("external link changed")
	}
}

func TestFixInvalidColumnWidths(t *testing.T) {
	doc := mustDocument(t, `<table><tgroup><colspec colwidth="1.5*"/><colspec colwidth="33.3*"/><colspec colwidth="2*"/><colspec colwidth="1in"/></tgroup></table>`)
	if n := FixInvalidColumnWidths(doc.Root()); n != 2 {
		t.Fatalf("changed %d widths, want 2", n)
	}
	var got []string
	for _, c := range doc.FindElements("//colspec") {
		got = append(got, c.SelectAttrValue("colwidth", ""))
	}
	want := []string{"2*", "33*", "2*", "1in"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("colwidth[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFixMisplacedImageHrefs(t *testing.T) {
	doc := mustDocument(t, `<book>
<imagedata fileref="diagram.png"/>
<imagedata fileref="./shots/a.png"/>
<imagedata fileref="images/ok.png"/>
<imagedata fileref="Common_Content/images/logo.png"/>
<imagedata fileref="https://example.com/x.png"/>
<imagedata fileref="/abs/y.png"/>
</book>`)
	if n := FixMisplacedImageHrefs(doc.Root()); n != 2 {
		t.Fatalf("changed %d images, want 2", n)
	}
	want := []string{"images/diagram.png", "images/shots/a.png", "images/ok.png",
		"Common_Content/images/logo.png", "https://example.com/x.png", "/abs/y.png"}
	for i, img := range doc.FindElements("//imagedata") {
		if got := img.SelectAttrValue("fileref", ""); got != want[i] {
			t.Errorf("fileref[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestFixTitlelessPrefaces(t *testing.T) {
	doc := mustDocument(t, `<book><preface><title></title></preface><preface><title>Intro</title></preface><preface/></book>`)
	if n := FixTitlelessPrefaces(doc.Root()); n != 1 {
		t.Fatalf("changed %d prefaces, want 1", n)
	}
	titles := doc.FindElements("//preface/title")
	if titles[0].Text() != "Preface" || titles[1].Text() != "Intro" {
		t.Errorf("titles = %q, %q", titles[0].Text(), titles[1].Text())
	}
}

func TestPostProcess(t *testing.T) {
	log := zaptest.NewLogger(t)
	doc := mustDocument(t, `<book><preface><title/></preface><colspec colwidth="1.5*"/></book>`)

	if err := PostProcess(doc, []string{"titleless-prefaces", "bogus"}, log); err == nil {
		t.Fatal("expected error for unknown step")
	}
	if got := doc.FindElement("//title").Text(); got != "" {
		t.Fatalf("document changed before steps were verified: %q", got)
	}

	if err := PostProcess(doc, []string{"titleless-prefaces"}, log); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	if got := doc.FindElement("//title").Text(); got != "Preface" {
		t.Errorf("title = %q", got)
	}
	if got := doc.FindElement("//colspec").SelectAttrValue("colwidth", ""); got != "1.5*" {
		t.Errorf("disabled step applied, colwidth = %q", got)
	}

	if err := PostProcess(etree.NewDocument(), nil, log); err == nil {
		t.Error("expected error for empty document")
	}
}
