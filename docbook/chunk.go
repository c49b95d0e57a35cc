package docbook

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrNotChunkable is returned for elements which are never rendered to
// separate files.
var ErrNotChunkable = errors.New("element is not chunkable")

type chunkRule struct {
	prefix string
	// count instances across the whole document rather than among siblings
	anyLevel bool
	// counter is rendered as letters
	alpha bool
	// name is prefixed with the parent chunk name
	useParent bool
}

var chunkRules = map[string]chunkRule{
	"book":         {prefix: "bk", anyLevel: true},
	"article":      {prefix: "ar", anyLevel: true},
	"chapter":      {prefix: "ch", anyLevel: true},
	"appendix":     {prefix: "ap", anyLevel: true, alpha: true},
	"part":         {prefix: "pt", anyLevel: true},
	"preface":      {prefix: "pr", anyLevel: true},
	"index":        {prefix: "ix", anyLevel: true},
	"reference":    {prefix: "rn", anyLevel: true},
	"refentry":     {prefix: "re", anyLevel: true},
	"colophon":     {prefix: "co", anyLevel: true},
	"bibliography": {prefix: "bi", anyLevel: true},
	"glossary":     {prefix: "go", anyLevel: true},
	"topic":        {prefix: "to", anyLevel: true},
	"legalnotice":  {prefix: "ln", anyLevel: true},
	"section":      {prefix: "s", useParent: true},
	"sect1":        {prefix: "s", useParent: true},
	"sect2":        {prefix: "s", useParent: true},
	"sect3":        {prefix: "s", useParent: true},
	"sect4":        {prefix: "s", useParent: true},
	"sect5":        {prefix: "s", useParent: true},
}

// ChunkTypes lists names of elements which could be chunked.
func ChunkTypes() []string {
	res := make([]string, 0, len(chunkRules))
	for k := range chunkRules {
		res = append(res, k)
	}
	return res
}

// IsChunkable reports whether element could be rendered to separate file.
func IsChunkable(e *etree.Element) bool {
	if e == nil || !IsDocBook(e) {
		return false
	}
	_, ok := chunkRules[e.Tag]
	return ok
}

// ChunkFilename computes file name (without extension) the renderer assigns
// to the element when it is not given an explicit id.
func ChunkFilename(e *etree.Element) (string, error) {
	if !IsChunkable(e) {
		return "", fmt.Errorf("%w: %s", ErrNotChunkable, e.Tag)
	}
	rule := chunkRules[e.Tag]

	count := precedingSiblings(e) + 1
	parent := Parent(e)
	if rule.anyLevel && parent != nil {
		count += precedingElements(parent, e.Tag)
	}

	var name string
	if rule.alpha {
		name = rule.prefix + NumberToAlpha(count)
	} else {
		name = fmt.Sprintf("%s%02d", rule.prefix, count)
	}

	if rule.useParent && IsChunkable(parent) {
		parentName, err := ChunkFilename(parent)
		if err != nil {
			return "", err
		}
		name = parentName + name
	}
	return name, nil
}

// precedingSiblings counts siblings before e having the same local name.
func precedingSiblings(e *etree.Element) int {
	p := e.Parent()
	if p == nil {
		return 0
	}
	var n int
	for _, c := range p.ChildElements() {
		if c == e {
			break
		}
		if c.Tag == e.Tag {
			n++
		}
	}
	return n
}

// precedingElements counts elements named tag located before e in document
// order, excluding e ancestors.
func precedingElements(e *etree.Element, tag string) int {
	ancestors := make(map[*etree.Element]bool)
	root := e
	for p := Parent(e); p != nil; p = Parent(p) {
		ancestors[p] = true
		root = p
	}
	if root == e {
		return 0
	}

	var (
		n    int
		done bool
	)
	var visit func(*etree.Element)
	visit = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if done {
				return
			}
			switch {
			case c == e:
				done = true
				return
			case ancestors[c]:
				visit(c)
			default:
				n += countTag(c, tag)
			}
		}
	}
	visit(root)
	return n
}

func countTag(e *etree.Element, tag string) int {
	var n int
	Walk(e, func(el *etree.Element) bool {
		if el.Tag == tag {
			n++
		}
		return true
	})
	return n
}

// NumberToAlpha converts list counter to letters: 1 -> a, 26 -> z, 27 -> aa.
func NumberToAlpha(n int) string {
	var res []byte
	for n > 0 {
		mod := (n - 1) % 26
		res = append([]byte{byte('a' + mod)}, res...)
		n = (n - mod) / 26
	}
	return string(res)
}
