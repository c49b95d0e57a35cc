package docbook

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// commonContent marks renderer supplied resources which are not present in
// the source tree and carry nothing needed here.
const commonContent = "Common_Content"

// maximum nesting of includes
const maxIncludeDepth = 32

var (
	reParamEntity   = regexp.MustCompile(`<!ENTITY\s+%\s+(\S+)\s+SYSTEM\s+["']([^"']+)["']\s*>`)
	reGeneralEntity = regexp.MustCompile(`<!ENTITY\s+([^\s%]+)\s+(?:"([^"]*)"|'([^']*)')\s*>`)
	reEntityRef     = regexp.MustCompile(`&([A-Za-z_][\w.-]*);`)
)

// Loader reads DocBook files resolving entities declared in the internal
// DTD subset (including external entity files) and XInclude elements.
type Loader struct {
	log *zap.Logger
}

func NewLoader(log *zap.Logger) *Loader {
	return &Loader{log: log.Named("loader")}
}

// Load reads and parses XML file.
func (l *Loader) Load(path string) (*etree.Document, error) {
	return l.load(path, map[string]bool{}, 0)
}

func (l *Loader) load(path string, active map[string]bool, depth int) (*etree.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if active[abs] {
		return nil, fmt.Errorf("recursive inclusion of %s", abs)
	}
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("includes are nested too deep at %s", abs)
	}
	active[abs] = true
	defer delete(active, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	entities, err := l.entities(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("unable to resolve entities of %s: %w", abs, err)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Entity = entities
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", abs, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("no root element in %s", abs)
	}
	if err := l.resolveIncludes(doc.Root(), filepath.Dir(abs), active, depth); err != nil {
		return nil, err
	}
	return doc, nil
}

// entities collects entities declared in the document type declaration on
// top of standard HTML character entities.
func (l *Loader) entities(data []byte, dir string) (map[string]string, error) {
	res := maps.Clone(xml.HTMLEntity)
	subset := internalSubset(data)
	if len(subset) == 0 {
		return res, nil
	}
	for _, m := range reParamEntity.FindAllSubmatch(subset, -1) {
		name, file := string(m[1]), string(m[2])
		if strings.Contains(file, "://") {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		ent, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && strings.Contains(file, commonContent) {
				l.log.Debug("Ignoring missing entity file", zap.String("entity", name), zap.String("file", file))
				continue
			}
			return nil, err
		}
		l.log.Debug("Resolving entity file", zap.String("entity", name), zap.String("file", file))
		collectEntities(ent, res)
	}
	collectEntities(subset, res)
	expandEntities(res)
	return res, nil
}

func internalSubset(data []byte) []byte {
	start := bytes.Index(data, []byte("<!DOCTYPE"))
	if start < 0 {
		return nil
	}
	rest := data[start:]
	open := bytes.IndexByte(rest, '[')
	closing := bytes.IndexByte(rest, '>')
	if open < 0 || (closing >= 0 && closing < open) {
		return nil
	}
	end := bytes.Index(rest, []byte("]>"))
	if end < 0 {
		end = len(rest)
	}
	return rest[open:end]
}

func collectEntities(data []byte, to map[string]string) {
	for _, m := range reGeneralEntity.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if _, ok := to[name]; ok && xml.HTMLEntity[name] == "" {
			// first declaration wins
			continue
		}
		if m[2] != nil {
			to[name] = string(m[2])
		} else {
			to[name] = string(m[3])
		}
	}
}

// expandEntities replaces references to other entities inside entity values.
func expandEntities(ents map[string]string) {
	for range 8 {
		changed := false
		for k, v := range ents {
			if !strings.Contains(v, "&") {
				continue
			}
			nv := reEntityRef.ReplaceAllStringFunc(v, func(ref string) string {
				name := ref[1 : len(ref)-1]
				if r, ok := ents[name]; ok && name != k {
					return r
				}
				return ref
			})
			if nv != v {
				ents[k] = nv
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func isInclude(e *etree.Element) bool {
	return e.Tag == "include" && e.NamespaceURI() == XInclude
}

func (l *Loader) resolveIncludes(el *etree.Element, dir string, active map[string]bool, depth int) error {
	for i := 0; i < len(el.Child); i++ {
		c, ok := el.Child[i].(*etree.Element)
		if !ok {
			continue
		}
		if !isInclude(c) {
			if err := l.resolveIncludes(c, dir, active, depth); err != nil {
				return err
			}
			continue
		}
		tokens, err := l.include(c, dir, active, depth)
		if err != nil {
			return err
		}
		el.RemoveChildAt(i)
		for j, t := range tokens {
			el.InsertChildAt(i+j, t)
		}
		// replacement is already resolved
		i += len(tokens) - 1
	}
	return nil
}

// include returns tokens replacing the include element.
func (l *Loader) include(inc *etree.Element, dir string, active map[string]bool, depth int) ([]etree.Token, error) {
	href := inc.SelectAttrValue("href", "")
	if len(href) == 0 {
		return nil, errors.New("xi:include without href")
	}
	path := href
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, filepath.FromSlash(href))
	}

	if _, err := os.Stat(path); err != nil {
		if fb := includeFallback(inc); fb != nil {
			l.log.Debug("Using include fallback", zap.String("href", href))
			if err := l.resolveIncludes(fb, dir, active, depth); err != nil {
				return nil, err
			}
			tokens := append([]etree.Token(nil), fb.Child...)
			return tokens, nil
		}
		if strings.Contains(href, commonContent) {
			l.log.Debug("Ignoring missing common content", zap.String("href", href))
			return nil, nil
		}
		return nil, fmt.Errorf("unable to include %s: %w", href, err)
	}

	if inc.SelectAttrValue("parse", "xml") == "text" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to include %s: %w", href, err)
		}
		return []etree.Token{etree.NewText(string(data))}, nil
	}

	doc, err := l.load(path, active, depth+1)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	doc.RemoveChild(root)
	return []etree.Token{root}, nil
}

func includeFallback(inc *etree.Element) *etree.Element {
	for _, c := range inc.ChildElements() {
		if c.Tag == "fallback" && c.NamespaceURI() == XInclude {
			return c
		}
	}
	return nil
}

// RootName returns local name of the root element without resolving
// entities or includes.
func RootName(path string) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromFile(path); err != nil {
		return "", fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if doc.Root() == nil {
		return "", fmt.Errorf("no root element in %s", path)
	}
	return doc.Root().Tag, nil
}
