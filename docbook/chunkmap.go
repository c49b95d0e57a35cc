package docbook

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	yaml "gopkg.in/yaml.v3"
)

// Chunk is a planned page: the source element and its nested chunks.
type Chunk struct {
	Name     string
	Element  *etree.Element
	Children *ChunkMap
}

// ChunkMap is an ordered mapping of chunk file names to chunks. Names are
// unique within a single map, setting existing name replaces the entry in
// place.
type ChunkMap struct {
	keys    []string
	entries map[string]*Chunk
}

func NewChunkMap() *ChunkMap {
	return &ChunkMap{entries: make(map[string]*Chunk)}
}

// Set adds chunk for the element and returns it.
func (m *ChunkMap) Set(name string, el *etree.Element) *Chunk {
	c := &Chunk{Name: name, Element: el, Children: NewChunkMap()}
	m.put(c)
	return c
}

func (m *ChunkMap) put(c *Chunk) {
	if _, ok := m.entries[c.Name]; !ok {
		m.keys = append(m.keys, c.Name)
	}
	m.entries[c.Name] = c
}

func (m *ChunkMap) Get(name string) (*Chunk, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m.entries[name]
	return c, ok
}

func (m *ChunkMap) Delete(name string) {
	if _, ok := m.entries[name]; !ok {
		return
	}
	delete(m.entries, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *ChunkMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns chunk names in insertion order.
func (m *ChunkMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Chunks returns chunks in insertion order.
func (m *ChunkMap) Chunks() []*Chunk {
	if m == nil {
		return nil
	}
	res := make([]*Chunk, 0, len(m.keys))
	for _, k := range m.keys {
		res = append(res, m.entries[k])
	}
	return res
}

// Index returns chunk position in the map or -1.
func (m *ChunkMap) Index(name string) int {
	if m == nil {
		return -1
	}
	for i, k := range m.keys {
		if k == name {
			return i
		}
	}
	return -1
}

// Overrides maps element ids or planned chunk names to file names the
// renderer was told to use.
type Overrides map[string]string

// LoadOverrides reads overrides from YAML file with "key: filename" lines.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read chunk overrides: %w", err)
	}
	ov := make(Overrides)
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("unable to parse chunk overrides %s: %w", path, err)
	}
	return ov, nil
}

func (o Overrides) lookup(id string, hasID bool, planned string) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	if hasID {
		if v, ok := o[id]; ok && len(v) > 0 {
			return v, true
		}
	}
	if len(planned) > 0 {
		if v, ok := o[planned]; ok && len(v) > 0 {
			return v, true
		}
	}
	return "", false
}

// ChunkName returns file name of the chunk for element: "index" for the
// document root, override, element id or name computed by ChunkFilename in
// that order.
func ChunkName(el *etree.Element, docType string, ov Overrides) (string, error) {
	if el.Tag == docType {
		return "index", nil
	}
	id, hasID := ID(el)
	planned, err := ChunkFilename(el)
	if err != nil {
		return "", err
	}
	if name, ok := ov.lookup(id, hasID, planned); ok {
		return name, nil
	}
	if hasID {
		return id, nil
	}
	return planned, nil
}

// BuildChunkMap walks document tree and plans its chunks. Chunkable
// descendants of non chunkable elements are placed on the nearest chunk
// level. Chunks under document root are siblings of "index" except those
// from the root info block, legal notices found under "index" are moved to
// the end of the top level.
func BuildChunkMap(root *etree.Element, docType string, ov Overrides) *ChunkMap {
	m := NewChunkMap()
	buildChunkMap(root, docType, ov, m)
	return m
}

func buildChunkMap(el *etree.Element, docType string, ov Overrides, m *ChunkMap) {
	isRoot := el.Tag == docType && IsDocBook(el)
	childMap := m
	if IsChunkable(el) {
		// cannot fail for chunkable elements
		name, _ := ChunkName(el, docType, ov)
		childMap = m.Set(name, el).Children
	}

	for _, c := range el.ChildElements() {
		if isRoot && !strings.Contains(c.Tag, "info") {
			buildChunkMap(c, docType, ov, m)
		} else {
			buildChunkMap(c, docType, ov, childMap)
		}
	}

	if isRoot {
		relocateLegalNotices(m)
	}
}

func relocateLegalNotices(m *ChunkMap) {
	index, ok := m.Get("index")
	if !ok {
		return
	}
	for _, c := range index.Children.Chunks() {
		if strings.HasSuffix(c.Element.Tag, "legalnotice") {
			index.Children.Delete(c.Name)
			m.put(c)
		}
	}
}
