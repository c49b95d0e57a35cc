package build

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"dbfeed/book"
	"dbfeed/config"
)

// Values is a struct that holds variables we make available for template
// expansion.
type Values struct {
	Context  string
	DocID    string
	Lang     string
	SrcLang  string
	Protocol string
	Title    string
	Product  string
	Version  string
}

func (s *session) values(name config.TemplateFieldName) Values {
	return Values{
		Context:  string(name),
		DocID:    s.docID,
		Lang:     s.opts.Lang,
		SrcLang:  s.opts.SrcLang,
		Protocol: s.opts.Protocol.String(),
		Title:    s.npv.Title,
		Product:  s.npv.Product,
		Version:  s.npv.Version,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// outputPath returns feed file location in the feed directory of the
// target language. Name comes from the configured template, document id is
// used when expansion fails.
func (s *session) outputPath() string {
	dir := s.cfg.BuildDir(s.opts.Lang, book.FeedFormat)
	defaultName := s.docID + ".xml"

	name, err := expandTemplate(config.OutputNameTemplateFieldName, s.env.Cfg.Feed.OutputNameTemplate, s.values(config.OutputNameTemplateFieldName))
	if err != nil {
		s.log.Warn("Unable to prepare output filename", zap.Error(err))
		return filepath.Join(dir, defaultName)
	}
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return filepath.Join(dir, defaultName)
	}
	name = config.CleanFileName(name)
	if !strings.EqualFold(filepath.Ext(name), ".xml") {
		name += ".xml"
	}
	return filepath.Join(dir, name)
}
