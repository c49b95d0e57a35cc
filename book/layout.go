package book

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// FeedFormat is the renderer format producing chunked HTML and feed skeleton.
const FeedFormat = "drupal-book"

// Formats lists renderer output formats which could be requested.
var Formats = []string{"html", "html-single", "html-desktop", "pdf", "epub", "xml", "txt", FeedFormat}

// SingleFileFormats could be attached to the feed as additional formats.
var SingleFileFormats = []string{"pdf", "epub", "txt"}

// ErrNoArtifact is returned when expected build artifact cannot be located.
var ErrNoArtifact = errors.New("build artifact not found")

func ValidFormat(format string) bool {
	return lo.Contains(Formats, format)
}

// CheckFormats verifies that all formats are known to the renderer.
func CheckFormats(formats []string) error {
	for _, f := range formats {
		if !ValidFormat(f) {
			return fmt.Errorf("%q is not a valid format", f)
		}
	}
	return nil
}

// LangDir is the source directory for given language.
func (c *Config) LangDir(lang string) string {
	return filepath.Join(c.SourceDir, lang)
}

// BuildRoot is the renderer temporary directory.
func (c *Config) BuildRoot() string {
	return filepath.Join(c.SourceDir, c.Value(KeyTmpDir))
}

// BuildDir is the directory holding build artifacts for language and format.
func (c *Config) BuildDir(lang, format string) string {
	return filepath.Join(c.BuildRoot(), lang, format)
}

func (c *Config) ArchivesDir() string {
	return filepath.Join(c.BuildRoot(), "archives")
}

// Artifact locates main build artifact of the single file or html formats.
func (c *Config) Artifact(lang, format string) (string, error) {
	dir := c.BuildDir(lang, format)
	switch format {
	case "html", "html-single", "html-desktop":
		return filepath.Join(dir, "index.html"), nil
	case "epub":
		// epub is placed directly in the language directory
		dir = filepath.Join(c.BuildRoot(), lang)
		fallthrough
	case "pdf", "txt":
		name, err := FindFile(dir, format, "")
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("%w: format %s has no single artifact", ErrNoArtifact, format)
}

// XMLFile is the resolved DocBook main file produced by the xml format.
func (c *Config) XMLFile(lang, mainFile string) string {
	return filepath.Join(c.BuildDir(lang, "xml"), filepath.Base(mainFile))
}

// FeedFile is the feed skeleton produced by the renderer, or the location
// where the feed will be written.
func (c *Config) FeedFile(lang, docID string) string {
	dir := c.BuildDir(lang, FeedFormat)
	if name, err := FindFile(dir, "xml", docID); err == nil {
		return filepath.Join(dir, name)
	}
	return filepath.Join(dir, docID+".xml")
}

// AdditionalFilesDir returns directory for files accompanying the feed. The
// renderer places them into the feed directory subfolder named after
// document id, it is created when missing.
func (c *Config) AdditionalFilesDir(lang, docID string) (string, error) {
	dir := c.BuildDir(lang, FeedFormat)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), docID) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	dir = filepath.Join(dir, docID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create additional files directory: %w", err)
	}
	return dir, nil
}

// FindFile returns name of the first file in dir with given extension and
// name prefix.
func FindFile(dir, ext, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoArtifact, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), "."+ext) && strings.HasPrefix(e.Name(), prefix) {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("%w: no %s file in %s", ErrNoArtifact, ext, dir)
}
