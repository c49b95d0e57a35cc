package docbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
)

func mustDocument(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// findByTitle locates element which has title child with given text.
func findByTitle(t *testing.T, root *etree.Element, title string) *etree.Element {
	t.Helper()
	var found *etree.Element
	Walk(root, func(el *etree.Element) bool {
		if found != nil {
			return false
		}
		if tt := FindChild(el, "title"); tt != nil && Text(tt) == title {
			found = el
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("element with title %q not found", title)
	}
	return found
}
