// Package build runs a complete feed build of a single document: renders
// it, repairs and validates rendered DocBook, builds the feed and packs it
// for publishing.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"dbfeed/archive"
	"dbfeed/book"
	"dbfeed/common"
	"dbfeed/docbook"
	"dbfeed/docbook/l10n"
	"dbfeed/feed"
	"dbfeed/render"
	"dbfeed/state"
	"dbfeed/validate"
)

// Options describe a single build request.
type Options struct {
	SourceDir string
	// BuildConfig is the document build configuration file, relative to
	// SourceDir, empty for default one.
	BuildConfig string
	// Lang is the language feed is built for, SrcLang is the language
	// document is written in. Both default to the configured language.
	Lang    string
	SrcLang string
	// Protocol overrides configured feed protocol when set.
	Protocol common.Protocol
	// Formats are additional single file formats attached to the feed.
	Formats []string
	// BuildArgs are passed to the renderer as is.
	BuildArgs []string
	// DocType is used for documents without build configuration file.
	DocType string
	// UUID of the document, new one is generated when not set.
	UUID    uuid.UUID
	Archive bool
}

// session keeps everything known about the document being built.
type session struct {
	env      *state.LocalEnv
	opts     Options
	cfg      *book.Config
	renderer render.Renderer
	loader   *docbook.Loader
	log      *zap.Logger

	npv      docbook.NPV
	mainFile string
	docID    string
}

func (s *session) isTranslation() bool {
	return s.opts.Lang != s.opts.SrcLang
}

func newSession(env *state.LocalEnv, opts Options, r render.Renderer, log *zap.Logger) (*session, error) {
	cfg, err := env.Books.Load(opts.SourceDir, opts.BuildConfig)
	if errors.Is(err, book.ErrNoConfig) && len(opts.DocType) > 0 {
		log.Warn("Document build configuration not found, using defaults", zap.String("type", opts.DocType), zap.Error(err))
		cfg = book.New(opts.SourceDir, map[string]string{book.KeyType: titleCase(opts.DocType)})
	} else if err != nil {
		return nil, err
	} else if len(opts.DocType) > 0 && !strings.EqualFold(opts.DocType, cfg.Type()) {
		log.Warn("Requested document type ignored, configuration defines another one",
			zap.String("requested", opts.DocType), zap.String("type", cfg.Type()))
	}

	if len(opts.SrcLang) == 0 {
		opts.SrcLang = cfg.Lang()
	}
	if len(opts.Lang) == 0 {
		opts.Lang = opts.SrcLang
	}
	if !opts.Protocol.IsValid() {
		opts.Protocol = env.Cfg.Feed.Protocol
	}
	opts.Formats = lo.Uniq(opts.Formats)
	for _, f := range opts.Formats {
		if !lo.Contains(book.SingleFileFormats, f) {
			return nil, fmt.Errorf("format %s cannot be attached to the feed, try [%s]", f, strings.Join(book.SingleFileFormats, ", "))
		}
	}
	if opts.UUID == uuid.Nil {
		if opts.UUID, err = uuid.NewV7(); err != nil {
			return nil, fmt.Errorf("unable to generate document uuid: %w", err)
		}
	}

	if r == nil {
		r = render.NewPublican(env.Cfg.Render.Command, env.Cfg.Render.Args, cfg, log)
	}

	s := &session{
		env:      env,
		opts:     opts,
		cfg:      cfg,
		renderer: r,
		loader:   docbook.NewLoader(log),
		log:      log,
	}
	if err := s.identify(); err != nil {
		return nil, err
	}
	return s, nil
}

// identify reads document metadata, checks main file and computes
// document id.
func (s *session) identify() error {
	npv, _, err := docbook.SourceNPV(s.loader, s.cfg)
	if err != nil {
		return fmt.Errorf("unable to read document info: %w", err)
	}
	s.npv = npv

	s.mainFile = s.cfg.MainFile(npv.Title)
	if len(s.mainFile) == 0 {
		return errors.New("unable to determine document main file, document has no title")
	}
	name, err := docbook.RootName(filepath.Join(s.cfg.SourceDir, s.mainFile))
	if err != nil {
		return err
	}
	if name != s.cfg.DocType() {
		return fmt.Errorf("document type %s does not match root element <%s> of %s", s.cfg.Type(), name, s.mainFile)
	}

	s.docID = docbook.DocID(npv, s.opts.Lang)
	return nil
}

func (s *session) skipRender() bool {
	return s.env.SkipRender || s.env.Cfg.Render.Skip
}

// render produces artifacts for the build. Translation builds need source
// language feed pages and DocBook as well.
func (s *session) render(ctx context.Context, formats ...string) error {
	if s.skipRender() {
		s.log.Info("Rendering skipped, using existing artifacts", zap.String("dir", s.cfg.BuildRoot()))
		return nil
	}
	req := render.Request{
		SourceDir: s.cfg.SourceDir,
		Config:    s.opts.BuildConfig,
		Args:      s.opts.BuildArgs,
	}
	if s.isTranslation() {
		req.Lang, req.Formats = s.opts.SrcLang, []string{"xml"}
		if lo.Contains(formats, book.FeedFormat) {
			req.Formats = append(req.Formats, book.FeedFormat)
		}
		if _, err := s.renderer.Render(ctx, req); err != nil {
			return err
		}
	}
	req.Lang, req.Formats = s.opts.Lang, lo.Uniq(formats)
	art, err := s.renderer.Render(ctx, req)
	if err != nil {
		return err
	}
	if dir, ok := art.Dirs[book.FeedFormat]; ok {
		return s.removeRendererFeed(dir)
	}
	return nil
}

// removeRendererFeed deletes feed skeleton and package renderer leaves in
// the feed directory, they are replaced by the build.
func (s *session) removeRendererFeed(dir string) error {
	for _, ext := range []string{"tar.gz", "xml"} {
		for {
			name, err := book.FindFile(dir, ext, "")
			if err != nil {
				break
			}
			s.log.Debug("Removing renderer output", zap.String("file", name))
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// load reads rendered DocBook of the language, repairs it and validates
// when requested.
func (s *session) load(lang string, check bool) (*etree.Document, error) {
	path := s.cfg.XMLFile(lang, s.mainFile)
	doc, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load rendered DocBook: %w", err)
	}
	if err := render.PostProcess(doc, s.env.Cfg.Feed.Fixups, s.log); err != nil {
		return nil, err
	}
	if check {
		if err := validate.Document(doc, s.log); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return doc, nil
}

func (s *session) documents() (src, trans *etree.Document, err error) {
	check := s.env.Cfg.Feed.Validate
	if src, err = s.load(s.opts.SrcLang, check); err != nil {
		return nil, nil, err
	}
	if s.isTranslation() {
		if trans, err = s.load(s.opts.Lang, check); err != nil {
			return nil, nil, err
		}
	}
	return src, trans, nil
}

// Feed builds feed of a single document.
func Feed(ctx context.Context, env *state.LocalEnv, opts Options, r render.Renderer) (rerr error) {
	log := env.Log.Named("build")

	var docID, outputName string

	log.Info("Build starting", zap.String("source", opts.SourceDir), zap.String("lang", opts.Lang))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Build ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("build panic: %v", r)
		} else if rerr == nil {
			log.Info("Build completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.String("doc_id", docID))
		}
	}(time.Now())

	s, err := newSession(env, opts, r, log)
	if err != nil {
		return err
	}
	docID = s.docID

	formats := []string{"xml"}
	if env.Cfg.Feed.SinglePage {
		formats = append(formats, "html-single")
	}
	formats = append(formats, s.opts.Formats...)
	if err := s.render(ctx, append(formats, book.FeedFormat)...); err != nil {
		return err
	}

	src, trans, err := s.documents()
	if err != nil {
		return err
	}

	var overrides docbook.Overrides
	if path := env.Cfg.Feed.ChunkOverrides; len(path) > 0 {
		if overrides, err = docbook.LoadOverrides(path); err != nil {
			return err
		}
	}

	fctx, err := feed.NewContext(s.cfg, feed.Options{
		DocID:     s.docID,
		UUID:      s.opts.UUID,
		SrcLang:   s.opts.SrcLang,
		Lang:      s.opts.Lang,
		Protocol:  s.opts.Protocol,
		MediaPath: env.Cfg.Feed.MediaPath,
		L10n:      l10n.New(env.Cfg.Feed.L10nDir, log),
	}, s.loader, log)
	if err != nil {
		return err
	}
	b := feed.NewBuilder(fctx, overrides)
	doc, err := b.Build(src, trans)
	if err != nil {
		return fmt.Errorf("unable to build feed: %w", err)
	}
	if env.Cfg.Feed.SourceControl {
		feed.AddSourceInfo(doc, feed.GitSource(ctx, s.cfg.SourceDir, log))
	}
	if env.Cfg.Feed.SinglePage {
		path, err := s.cfg.Artifact(s.opts.Lang, "html-single")
		if err != nil {
			return err
		}
		if err := b.AddSinglePage(doc, path); err != nil {
			return err
		}
	}
	if err := b.AddFormats(doc, s.opts.Formats); err != nil {
		return fmt.Errorf("unable to add additional formats: %w", err)
	}

	if outputName, err = s.write(doc); err != nil {
		return err
	}
	s.report(b, doc, outputName)

	if opts.Archive || env.Cfg.Archive.Enable {
		if err := s.pack(outputName); err != nil {
			return err
		}
	}
	return nil
}

// write stores feed document checking for existing output.
func (s *session) write(doc *etree.Document) (string, error) {
	outputName := s.outputPath()

	if _, err := os.Stat(outputName); err == nil {
		if !s.env.Overwrite {
			return outputName, fmt.Errorf("output file already exists: %s", outputName)
		}
		s.log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return outputName, err
		}
	} else if !os.IsNotExist(err) {
		return outputName, err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return outputName, fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := doc.WriteToFile(outputName); err != nil {
		return outputName, fmt.Errorf("unable to write feed: %w", err)
	}
	return outputName, nil
}

// metadata describes the archived document, "[source] lang" is always the
// language document is written in.
func (s *session) metadata() archive.Metadata {
	return archive.Metadata{
		Lang:     s.opts.SrcLang,
		MainFile: strings.TrimSuffix(filepath.Base(s.mainFile), filepath.Ext(s.mainFile)),
		Type:     s.cfg.Type(),
		Markup:   s.env.Cfg.Archive.Markup,
		Title:    s.npv.Title,
		Product:  s.npv.Product,
		Version:  s.npv.Version,
	}
}

// pack writes publishing archive of the built feed.
func (s *session) pack(feedFile string) error {
	filesDir, err := s.cfg.AdditionalFilesDir(s.opts.Lang, s.docID)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.cfg.ArchivesDir(), s.docID+".tar.gz")
	if _, err := os.Stat(dst); err == nil {
		s.log.Debug("Replacing existing archive", zap.String("file", dst))
	}
	if err := archive.Pack(dst, feedFile, filepath.Dir(feedFile), filesDir, s.metadata(), s.log); err != nil {
		return fmt.Errorf("unable to pack feed: %w", err)
	}
	names, err := archive.Names(dst)
	if err != nil {
		return fmt.Errorf("unable to verify archive: %w", err)
	}
	s.log.Info("Archive created", zap.String("file", dst), zap.Int("entries", len(names)))
	return nil
}

// Validate renders DocBook of the document and checks it without building
// feed.
func Validate(ctx context.Context, env *state.LocalEnv, opts Options, r render.Renderer) error {
	log := env.Log.Named("validate")

	s, err := newSession(env, opts, r, log)
	if err != nil {
		return err
	}
	if err := s.render(ctx, "xml"); err != nil {
		return err
	}
	if _, err := s.load(s.opts.SrcLang, true); err != nil {
		return err
	}
	if s.isTranslation() {
		if _, err := s.load(s.opts.Lang, true); err != nil {
			return err
		}
	}
	log.Info("Document is valid", zap.String("doc_id", s.docID))
	return nil
}

func titleCase(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
