package render

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"dbfeed/docbook"
)

// Fixup is a named repair of rendered DocBook tree. Apply returns number of
// changed nodes.
type Fixup struct {
	Name  string
	Apply func(root *etree.Element) int
}

// Fixups lists all known repairs in the order they are applied: ids are
// fixed before references to them are converted.
var Fixups = []Fixup{
	{"convert-ids", FixConvertedIDs},
	{"unconverted-xrefs", FixUnconvertedXrefs},
	{"column-widths", FixInvalidColumnWidths},
	{"image-hrefs", FixMisplacedImageHrefs},
	{"titleless-prefaces", FixTitlelessPrefaces},
}

// PostProcess applies enabled repairs to the document. Repairs run in the
// order of Fixups regardless of order of names.
func PostProcess(doc *etree.Document, names []string, log *zap.Logger) error {
	known := lo.Map(Fixups, func(f Fixup, _ int) string { return f.Name })
	for _, n := range names {
		if !lo.Contains(known, n) {
			return fmt.Errorf("unknown post-processing step %q", n)
		}
	}

	root := doc.Root()
	if root == nil {
		return fmt.Errorf("document is empty")
	}
	log = log.Named("fixup")
	for _, f := range Fixups {
		if !lo.Contains(names, f.Name) {
			continue
		}
		if n := f.Apply(root); n > 0 {
			log.Debug("Post-processing step applied", zap.String("step", f.Name), zap.Int("changed", n))
		}
	}
	return nil
}

var (
	reColons         = regexp.MustCompile(`:+`)
	reInvalidColumn  = regexp.MustCompile(`^\d+\.\d+\*$`)
	reXMLFileRef     = regexp.MustCompile(`^(.*\.xml)#(.*)$`)
	reURL            = regexp.MustCompile(`^(http|ftp)s?://`)
	reURLOrImagePath = regexp.MustCompile(`^((http|ftp)s?://|(\./)?(images|Common_Content)(\\|/))`)
)

// FixConvertedIDs replaces colons, allowed in HTML ids but not in XML ones,
// with dashes and updates linkend and endterm references accordingly.
func FixConvertedIDs(root *etree.Element) int {
	renamed := make(map[string]string)
	docbook.Walk(root, func(el *etree.Element) bool {
		id, ok := docbook.ID(el)
		if ok && strings.Contains(id, ":") {
			fixed := reColons.ReplaceAllString(id, "-")
			docbook.SetID(el, fixed)
			renamed[id] = fixed
		}
		return true
	})
	if len(renamed) == 0 {
		return 0
	}
	docbook.Walk(root, func(el *etree.Element) bool {
		for _, name := range []string{"linkend", "endterm"} {
			if a := el.SelectAttr(name); a != nil {
				if fixed, ok := renamed[a.Value]; ok {
					a.Value = fixed
				}
			}
		}
		return true
	})
	return len(renamed)
}

// FixUnconvertedXrefs turns links pointing to an element of another source
// file (href "file.xml#id") into internal references. Links whose text is
// the file path become xrefs.
func FixUnconvertedXrefs(root *etree.Element) int {
	var n int
	for _, link := range docbook.FindAll(root, "link") {
		var href *etree.Attr
		for i := range link.Attr {
			a := &link.Attr[i]
			if a.Key == "href" && (a.NamespaceURI() == docbook.XLinkNS || a.Space == "xlink") {
				href = a
				break
			}
		}
		if href == nil || reURL.MatchString(href.Value) {
			continue
		}
		m := reXMLFileRef.FindStringSubmatch(href.Value)
		if m == nil {
			continue
		}
		link.RemoveAttr(href.FullKey())
		link.CreateAttr("linkend", m[2])
		if strings.TrimSpace(docbook.Text(link)) == m[1] {
			link.Tag = "xref"
			for _, t := range append([]etree.Token(nil), link.Child...) {
				link.RemoveChild(t)
			}
		}
		n++
	}
	return n
}

// FixInvalidColumnWidths rounds fractional proportional column widths,
// DocBook allows only integers there.
func FixInvalidColumnWidths(root *etree.Element) int {
	var n int
	for _, spec := range docbook.FindAll(root, "colspec") {
		a := spec.SelectAttr("colwidth")
		if a == nil || !reInvalidColumn.MatchString(a.Value) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(a.Value, "*"), 64)
		if err != nil {
			continue
		}
		a.Value = strconv.Itoa(int(math.Round(v))) + "*"
		n++
	}
	return n
}

// FixMisplacedImageHrefs moves relative image references placed outside of
// images directory into it, renderer only publishes that directory.
func FixMisplacedImageHrefs(root *etree.Element) int {
	var n int
	for _, img := range docbook.FindAll(root, "imagedata") {
		a := img.SelectAttr("fileref")
		if a == nil || len(a.Value) == 0 || reURLOrImagePath.MatchString(a.Value) || strings.HasPrefix(a.Value, "/") {
			continue
		}
		a.Value = path.Join("images", a.Value)
		n++
	}
	return n
}

// FixTitlelessPrefaces gives empty preface titles a default text.
func FixTitlelessPrefaces(root *etree.Element) int {
	var n int
	for _, preface := range docbook.FindAll(root, "preface") {
		title := docbook.FindChild(preface, "title")
		if title == nil || len(strings.TrimSpace(docbook.Text(title))) > 0 {
			continue
		}
		title.SetText("Preface")
		n++
	}
	return n
}
