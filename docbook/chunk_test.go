package docbook

import (
	"errors"
	"testing"
)

const bookDB4 = `<book>
  <bookinfo><title>T</title><legalnotice><para>legal</para></legalnotice></bookinfo>
  <preface><title>P</title></preface>
  <chapter><title>C1</title>
    <section><title>S1</title><section><title>S1.1</title></section></section>
    <section id="named"><title>S2</title></section>
  </chapter>
  <chapter><title>C2</title><para/><section><title>C2S1</title></section></chapter>
  <part><title>Part</title><chapter><title>C3</title></chapter></part>
  <appendix><title>A</title></appendix>
  <appendix><title>B</title><sect1><title>B1</title></sect1></appendix>
  <index/>
</book>`

func TestChunkFilename(t *testing.T) {
	root := mustDocument(t, bookDB4).Root()
	tests := []struct {
		title string
		want  string
	}{
		{"P", "pr01"},
		{"C1", "ch01"},
		{"S1", "ch01s01"},
		{"S1.1", "ch01s01s01"},
		{"S2", "ch01s02"},
		{"C2", "ch02"},
		{"C2S1", "ch02s01"},
		{"Part", "pt01"},
		{"C3", "ch03"},
		{"A", "apa"},
		{"B", "apb"},
		{"B1", "apbs01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			el := findByTitle(t, root, tt.title)
			got, err := ChunkFilename(el)
			if err != nil {
				t.Fatalf("ChunkFilename() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ChunkFilename() = %q, want %q", got, tt.want)
			}
			again, _ := ChunkFilename(el)
			if again != got {
				t.Errorf("second call returned %q, first %q", again, got)
			}
		})
	}

	if got, _ := ChunkFilename(root); got != "bk01" {
		t.Errorf("ChunkFilename(root) = %q, want bk01", got)
	}
	if got, _ := ChunkFilename(FindDescendant(root, "index")); got != "ix01" {
		t.Errorf("ChunkFilename(index) = %q, want ix01", got)
	}
	if got, _ := ChunkFilename(FindDescendant(root, "legalnotice")); got != "ln01" {
		t.Errorf("ChunkFilename(legalnotice) = %q, want ln01", got)
	}
}

func TestChunkFilename_NotChunkable(t *testing.T) {
	root := mustDocument(t, bookDB4).Root()
	for _, name := range []string{"title", "para", "bookinfo"} {
		if _, err := ChunkFilename(FindDescendant(root, name)); !errors.Is(err, ErrNotChunkable) {
			t.Errorf("ChunkFilename(%s) error = %v, want ErrNotChunkable", name, err)
		}
	}
}

func TestChunkFilename_SectionUnderNonChunkable(t *testing.T) {
	root := mustDocument(t, `<article><info/><div><section><title>X</title></section></div></article>`).Root()
	got, err := ChunkFilename(findByTitle(t, root, "X"))
	if err != nil {
		t.Fatalf("ChunkFilename() error = %v", err)
	}
	if got != "s01" {
		t.Errorf("ChunkFilename() = %q, want s01", got)
	}
}

func TestChunkFilename_Namespaced(t *testing.T) {
	root := mustDocument(t, `<book xmlns="http://docbook.org/ns/docbook" version="5.0">
<chapter><title>C1</title></chapter>
<chapter><title>C2</title><section><title>S</title></section></chapter>
<foreign:chapter xmlns:foreign="urn:other"><title>F</title></foreign:chapter>
</book>`).Root()
	if got, _ := ChunkFilename(findByTitle(t, root, "S")); got != "ch02s01" {
		t.Errorf("ChunkFilename() = %q, want ch02s01", got)
	}
	if _, err := ChunkFilename(findByTitle(t, root, "F")); !errors.Is(err, ErrNotChunkable) {
		t.Errorf("foreign element must not be chunkable, error = %v", err)
	}
}

func TestNumberToAlpha(t *testing.T) {
	tests := map[int]string{0: "", 1: "a", 2: "b", 26: "z", 27: "aa", 28: "ab", 52: "az", 53: "ba", 702: "zz", 703: "aaa"}
	for in, want := range tests {
		if got := NumberToAlpha(in); got != want {
			t.Errorf("NumberToAlpha(%d) = %q, want %q", in, got, want)
		}
	}
}
