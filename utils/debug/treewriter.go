// Package debug formats build internals (chunk maps, tables of contents,
// feed fragments) as indented text for the debug report.
package debug

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// TreeWriter accumulates indented lines of a tree dump.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

// Line writes formatted line indented by depth levels.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes labeled value quoted, so whitespace is visible.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Element writes element subtree: tag with attributes sorted by name, its
// own non blank text and child elements one level deeper.
func (tw *TreeWriter) Element(depth int, el *etree.Element) {
	if el == nil {
		return
	}
	attrs := make([]string, 0, len(el.Attr))
	for _, a := range el.Attr {
		attrs = append(attrs, fmt.Sprintf("%s=%q", a.FullKey(), a.Value))
	}
	slices.Sort(attrs)

	if len(attrs) > 0 {
		tw.Line(depth, "<%s> %s", el.FullTag(), strings.Join(attrs, " "))
	} else {
		tw.Line(depth, "<%s>", el.FullTag())
	}
	if text := strings.TrimSpace(el.Text()); len(text) > 0 {
		tw.TextBlock(depth+1, "text", text)
	}
	for _, child := range el.ChildElements() {
		tw.Element(depth+1, child)
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
