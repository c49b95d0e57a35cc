// Package book handles document build configuration (publican.cfg) and the
// layout of rendered build artifacts.
package book

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when document build configuration cannot be found.
var ErrNoConfig = errors.New("document build configuration not found")

// DefaultConfigName is the name of the document build configuration file
// looked up in the source directory.
const DefaultConfigName = "publican.cfg"

// Configuration keys.
const (
	KeyLang              = "xml_lang"
	KeyType              = "type"
	KeyDTDVersion        = "dtdver"
	KeyTmpDir            = "tmp_dir"
	KeyChunkSectionDepth = "chunk_section_depth"
	KeyTOCSectionDepth   = "toc_section_depth"
	KeyBrand             = "brand"
	KeyDocname           = "docname"
	KeyProduct           = "product"
	KeyVersion           = "version"
	KeyMainFile          = "mainfile"
	KeyInfoFile          = "info_file"
)

var defaults = map[string]string{
	KeyLang:              "en-US",
	KeyType:              "Book",
	KeyDTDVersion:        "4.5",
	KeyTmpDir:            "tmp",
	KeyChunkSectionDepth: "4",
	KeyTOCSectionDepth:   "2",
	KeyBrand:             "common",
}

// Config is a parsed document build configuration. Values not present in the
// file resolve to defaults.
type Config struct {
	// Path is absolute path of the configuration file.
	Path string
	// SourceDir is the document source directory, all relative locations are
	// resolved against it.
	SourceDir string

	values map[string]string
}

// Load reads document build configuration. When path is empty
// DefaultConfigName in sourceDir is used, relative paths are resolved against
// sourceDir.
func Load(sourceDir, path string) (*Config, error) {
	sourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, err
	}
	path = resolvePath(sourceDir, path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfig, path)
		}
		return nil, fmt.Errorf("unable to read document configuration: %w", err)
	}
	values, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document configuration %s: %w", path, err)
	}
	return &Config{Path: path, SourceDir: sourceDir, values: values}, nil
}

// New creates configuration from already known values, mostly useful for
// tests and for documents without configuration file.
func New(sourceDir string, values map[string]string) *Config {
	cfg := &Config{
		Path:      filepath.Join(sourceDir, DefaultConfigName),
		SourceDir: sourceDir,
		values:    make(map[string]string, len(values)),
	}
	for k, v := range values {
		cfg.values[k] = unquote(v)
	}
	return cfg
}

func resolvePath(sourceDir, path string) string {
	if len(path) == 0 {
		return filepath.Join(sourceDir, DefaultConfigName)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(sourceDir, path)
}

func parse(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	for k, v := range values {
		values[k] = unquote(v)
	}
	return values, nil
}

func unquote(v string) string {
	return strings.TrimRight(strings.TrimLeft(strings.TrimSpace(v), `"`), `"`)
}

// Lookup returns value explicitly set in configuration.
func (c *Config) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Value returns configured value or its default.
func (c *Config) Value(key string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return defaults[key]
}

// Override returns non empty configured value, used for docname, product and
// version overrides.
func (c *Config) Override(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v, true
}

func (c *Config) Lang() string {
	return c.Value(KeyLang)
}

func (c *Config) Type() string {
	return c.Value(KeyType)
}

// DocType is lowercased document type, matching DocBook root element name.
func (c *Config) DocType() string {
	return strings.ToLower(c.Type())
}

func (c *Config) Brand() string {
	return c.Value(KeyBrand)
}

func (c *Config) DTDVersion() (Version, error) {
	return ParseVersion(c.Value(KeyDTDVersion))
}

func (c *Config) ChunkSectionDepth() (int, error) {
	return c.intValue(KeyChunkSectionDepth)
}

func (c *Config) TOCSectionDepth() (int, error) {
	return c.intValue(KeyTOCSectionDepth)
}

func (c *Config) intValue(key string) (int, error) {
	v := c.Value(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q: %w", key, v, err)
	}
	return n, nil
}

var reWhitespace = regexp.MustCompile(`\s`)

// Docname returns document name used for main file lookup: docname override
// when present, otherwise supplied title. Whitespace is replaced with
// underscores.
func (c *Config) Docname(title string) string {
	if v, ok := c.Override(KeyDocname); ok {
		title = v
	}
	return reWhitespace.ReplaceAllString(title, "_")
}

// MainFile returns path of the main source file relative to SourceDir, title
// is used when neither mainfile nor docname are configured.
func (c *Config) MainFile(title string) string {
	name, ok := c.Override(KeyMainFile)
	if !ok {
		name = c.Docname(title)
	}
	if len(name) == 0 {
		return ""
	}
	return filepath.Join(c.Lang(), name+".xml")
}

// InfoFile returns path of the document info file in the given language
// directory.
func (c *Config) InfoFile(langDir string) string {
	if v, ok := c.Override(KeyInfoFile); ok {
		return filepath.Join(langDir, v)
	}
	return filepath.Join(langDir, c.Type()+"_Info.xml")
}
