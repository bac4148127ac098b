package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/host"
	"github.com/ardnew/cflat/log"
	"github.com/ardnew/cflat/pkg"
	"github.com/ardnew/cflat/rt"
	"github.com/ardnew/cflat/watch"
)

// buildDir is the directory under the cache directory holding build
// workspaces.
const buildDir = "build"

// hostFlags holds the flags shared by commands that build and run programs.
type hostFlags struct {
	Go        string `default:"${goCommand}" help:"Go command used to build programs"`
	CacheSize int    `default:"16"           help:"Number of built programs kept"`
}

// open returns a runner whose workspaces live in the cache directory. If
// tee is set, program output is also copied to the command's output as it
// runs.
func (r hostFlags) open(ctx context.Context, tee bool) (*host.GoRunner, error) {
	opts := []host.Option{
		host.WithLogger(log.Default()),
		host.WithGoCommand(r.Go),
		host.WithCacheSize(r.CacheSize),
	}

	if tee {
		out := outputFrom(ctx)
		opts = append(opts, host.WithOutput(out.Stdout, out.Stderr))
	}

	if ktx := kongContextFrom(ctx); ktx != nil {
		if cache, ok := ktx.Model.Vars()[CacheIdentifier]; ok && cache != "" {
			dir := filepath.Join(cache, buildDir)
			if err := os.MkdirAll(dir, pkg.DirMode); err == nil {
				opts = append(opts, host.WithWorkDir(dir))
			}
		}
	}

	return host.NewGoRunner(opts...)
}

// execute runs src through r and converts its result to an error.
func execute(ctx context.Context, r host.Runner, name, src string) error {
	res, err := r.Run(ctx, host.Program{Name: name, Source: src})
	if err != nil {
		return err
	}

	if len(res.Diagnostics) > 0 {
		return report(ctx, name, res.Diagnostics)
	}

	log.Default().DebugContext(ctx, "program exited",
		slog.String("source", name),
		slog.Int("code", res.ExitCode),
		slog.Bool("cached", res.Cached),
	)

	switch {
	case res.ArenaExhausted():
		return ErrRunFailed.Wrap(rt.ErrArenaExhausted).With(slog.String("source", name))
	case res.ExitCode != 0:
		return ErrRunFailed.With(slog.String("source", name), slog.Int("code", res.ExitCode))
	}

	return nil
}

// Run compiles a source file and runs it.
type Run struct {
	Host hostFlags `embed:""`

	Fold bool `help:"Fold constant integer expressions" negatable:""`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the run command.
func (c *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	r, err := c.Host.open(ctx, true)
	if err != nil {
		return err
	}
	defer r.Close()

	return c.run(ctx, r)
}

func (c *Run) run(ctx context.Context, r host.Runner) error {
	src, err := compile(ctx, c.Source, codegen.WithConstantFolding(c.Fold))
	if err != nil {
		return err
	}

	name := c.Source
	if name == stdinSource {
		name = stdinName
	}

	return execute(ctx, r, name, src)
}

// Watch reruns a source file whenever it or a file next to it changes.
type Watch struct {
	Host hostFlags `embed:""`

	Fold     bool          `help:"Fold constant integer expressions" negatable:""`
	Debounce time.Duration `default:"100ms"                           help:"Delay before a change is handled"`

	Source string `arg:"" help:"Source input file." name:"source" type:"existingfile"`
}

// Run executes the watch command.
func (w *Watch) Run(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r, err := w.Host.open(ctx, true)
	if err != nil {
		return err
	}
	defer r.Close()

	loop, err := watch.New(w.Source, w.handler(r),
		watch.WithLogger(log.Default()),
		watch.WithDirs(includePathFrom(ctx)...),
		watch.WithDebounce(w.Debounce),
	)
	if err != nil {
		return err
	}

	log.Default().InfoContext(ctx, "watching",
		slog.String("source", loop.Target()),
		slog.Any("dirs", loop.Dirs()),
	)

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (w *Watch) handler(r host.Runner) watch.Handler {
	return func(ctx context.Context, job watch.Job) error {
		log.Default().InfoContext(ctx, "running",
			slog.String("job", job.ID.String()),
			slog.String("trigger", job.Trigger),
		)

		src, err := compile(ctx, job.Path, codegen.WithConstantFolding(w.Fold))
		if err != nil {
			return err
		}

		return execute(ctx, r, job.Path, src)
	}
}
