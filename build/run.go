package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"dbfeed/common"
	"dbfeed/render"
	"dbfeed/state"
)

// optionsFromCommand collects build options from the command line. Source
// directory defaults to the working directory.
func optionsFromCommand(cmd *cli.Command, log *zap.Logger) (Options, error) {
	var (
		opts Options
		err  error
	)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		if src, err = os.Getwd(); err != nil {
			return opts, fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if opts.SourceDir, err = filepath.Abs(src); err != nil {
		return opts, err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Mailformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	if opts.Lang, err = common.NormalizeLang(cmd.String("lang")); err != nil {
		return opts, err
	}
	if opts.SrcLang, err = common.NormalizeLang(cmd.String("src-lang")); err != nil {
		return opts, err
	}
	if p := cmd.String("protocol"); len(p) > 0 {
		if opts.Protocol, err = common.ParseProtocol(p); err != nil {
			return opts, err
		}
	}
	if id := cmd.String("uuid"); len(id) > 0 {
		if opts.UUID, err = uuid.Parse(id); err != nil {
			return opts, fmt.Errorf("invalid document uuid %q: %w", id, err)
		}
	}
	opts.Formats = cmd.StringSlice("format")
	opts.BuildConfig = cmd.String("build-config")
	opts.BuildArgs = render.SplitArgs(cmd.String("build-args"))
	opts.DocType = cmd.String("doctype")
	opts.Archive = cmd.Bool("archive")
	return opts, nil
}

// Run is the "build" command action.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("run")

	opts, err := optionsFromCommand(cmd, log)
	if err != nil {
		return err
	}
	env.Overwrite, env.SkipRender = cmd.Bool("overwrite"), cmd.Bool("skip-render")

	log.Info("Processing starting", zap.String("source", opts.SourceDir), zap.String("lang", opts.Lang),
		zap.Strings("formats", opts.Formats))

	return Feed(ctx, env, opts, nil)
}

// RunValidate is the "validate" command action.
func RunValidate(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	opts, err := optionsFromCommand(cmd, env.Log.Named("run"))
	if err != nil {
		return err
	}
	env.SkipRender = cmd.Bool("skip-render")
	return Validate(ctx, env, opts, nil)
}
