// Package render runs the external document renderer and repairs known
// defects of its DocBook output before feed is built.
package render

import (
	"context"
	"errors"
	"strings"
)

// ErrRenderer is returned when the external renderer cannot be started or
// exits with non zero status.
var ErrRenderer = errors.New("renderer failed")

// Request describes a single renderer invocation.
type Request struct {
	// SourceDir is the document source directory renderer runs in.
	SourceDir string
	Lang      string
	Formats   []string
	// Config is the document build configuration file, empty for default.
	Config string
	// Args are passed to renderer as is after the standard ones.
	Args []string
}

// Artifacts describes result of successful rendering.
type Artifacts struct {
	Lang string
	// Dirs maps rendered format to directory holding its artifacts.
	Dirs map[string]string
	// Output is the combined renderer output.
	Output []byte
}

// Renderer turns document sources into requested formats.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Artifacts, error)
}

// SplitArgs splits additional renderer arguments given as a single string.
// Spaces escaped with backslash do not separate arguments.
func SplitArgs(s string) []string {
	var (
		args []string
		cur  strings.Builder
	)
	flush := func() {
		if v := cur.String(); len(strings.TrimSpace(v)) > 0 {
			args = append(args, v)
		}
		cur.Reset()
	}
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes) && runes[i+1] == ' ':
			cur.WriteRune(' ')
			i++
		case r == ' ':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}
