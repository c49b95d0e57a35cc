package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"dbfeed/book"
)

// Publican invokes publican compatible renderer:
//
//	<command> build --formats f1,f2 --langs lang [--config cfg] [args]
//
// in the document source directory.
type Publican struct {
	Command string
	// Args are appended to every invocation before request arguments.
	Args []string

	cfg *book.Config
	log *zap.Logger
}

func NewPublican(command string, args []string, cfg *book.Config, log *zap.Logger) *Publican {
	return &Publican{
		Command: command,
		Args:    args,
		cfg:     cfg,
		log:     log.Named("render"),
	}
}

func (p *Publican) commandLine(req Request) []string {
	args := []string{"build", "--formats", strings.Join(req.Formats, ","), "--langs", req.Lang}
	if len(req.Config) > 0 {
		args = append(args, "--config", req.Config)
	}
	args = append(args, p.Args...)
	return append(args, req.Args...)
}

// Render runs renderer and waits for it to finish. Renderer output is
// returned with artifacts and is a part of the error when renderer fails.
func (p *Publican) Render(ctx context.Context, req Request) (*Artifacts, error) {
	if len(req.Formats) == 0 {
		return nil, fmt.Errorf("%w: no formats requested", ErrRenderer)
	}
	if err := book.CheckFormats(req.Formats); err != nil {
		return nil, err
	}

	args := p.commandLine(req)
	p.log.Info("Rendering", zap.String("lang", req.Lang), zap.Strings("formats", req.Formats))
	p.log.Debug("Renderer command", zap.String("command", p.Command), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Dir = req.SourceDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w\n%s", ErrRenderer, p.Command, strings.Join(args, " "), err, out)
	}
	p.log.Debug("Renderer finished", zap.ByteString("output", out))

	res := &Artifacts{Lang: req.Lang, Dirs: make(map[string]string, len(req.Formats)), Output: out}
	for _, f := range req.Formats {
		res.Dirs[f] = p.cfg.BuildDir(req.Lang, f)
	}
	return res, nil
}
