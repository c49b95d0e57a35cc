// Package archive packs built feed for publishing and walks packed feeds.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each regular file in
// archive visited by Walk. The archive argument contains path to archive
// passed to Walk, r reads content of the file. If an error is returned,
// processing stops.
type WalkFunc func(archive string, hdr *tar.Header, r io.Reader) error

// Walk walks all regular files in the tar.gz archive whose names start with
// pattern, calling walkFn for each item. Entries with path traversal
// components ("..") or absolute paths make Walk fail.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", archive, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("unable to read %s: %w", archive, err)
		}
		if err != nil || !isSafePath(hdr.Name) {
			return fmt.Errorf("tar entry %q: unsafe path (absolute or contains path traversal)", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasPrefix(hdr.Name, pattern) {
			continue
		}
		if err := walkFn(archive, hdr, tr); err != nil {
			return err
		}
	}
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Names returns names of regular files in the archive in stored order.
func Names(archive string) ([]string, error) {
	var names []string
	err := Walk(archive, "", func(_ string, hdr *tar.Header, _ io.Reader) error {
		names = append(names, hdr.Name)
		return nil
	})
	return names, err
}
