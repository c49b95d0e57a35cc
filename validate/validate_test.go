package validate

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func mustDocument(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestDocument_Valid(t *testing.T) {
	doc := mustDocument(t, `<book xmlns="http://docbook.org/ns/docbook" xmlns:xml="http://www.w3.org/XML/1998/namespace">
<info><authorgroup><author><personname><firstname>Ann</firstname><surname>Lee</surname></personname></author></authorgroup></info>
<chapter xml:id="one"><para><xref linkend="one"/><link linkend="two" endterm="one">x</link></para></chapter>
<chapter xml:id="two"/></book>`)
	if err := Document(doc, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Document: %v", err)
	}
}

func TestDocument_Violations(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	doc := mustDocument(t, `<book>
<bookinfo><authorgroup><author><firstname>Ann</firstname></author><author><surname>Lee</surname></author></authorgroup></bookinfo>
<chapter id="one"><para><xref linkend="missing"/><link linkend="one" endterm="gone">x</link></para></chapter>
<chapter id="one"/></book>`)

	err := Document(doc, zap.New(core))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
	// duplicate id, two unknown references, two incomplete authors
	if n := len(multierr.Errors(err)); n != 5 {
		t.Errorf("%d violations, want 5: %v", n, err)
	}
	if n := logs.Len(); n != 5 {
		t.Errorf("%d error lines logged, want 5", n)
	}
	if got := logs.FilterField(zap.String("id", "one")).Len(); got != 1 {
		t.Errorf("duplicate id reported %d times", got)
	}
}

func TestDocument_Empty(t *testing.T) {
	if err := Document(etree.NewDocument(), zaptest.NewLogger(t)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("error = %v", err)
	}
}
