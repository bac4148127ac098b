package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/rt"
)

// Files of a build workspace.
const (
	GoModFile   = "go.mod"
	MainFile    = "main.go"
	ProgramFile = "program.go"
)

// goVersion is the language version of the workspace module.
const goVersion = "1.23"

const mainSource = `// Code generated by cflat. DO NOT EDIT.

package main

import (
	"os"

	"` + codegen.DefaultRuntimeImport + `"
)

func main() {
	os.Exit(rt.Run(` + codegen.EntryFunc + `))
}
`

// buildFunc compiles the module in dir into the executable bin and returns
// the toolchain's output.
type buildFunc func(ctx context.Context, dir, bin string) ([]byte, error)

// GoRunner runs programs by building them with the Go toolchain. Built
// executables are cached by the hash of their source.
type GoRunner struct {
	cache *lru.Cache
	build buildFunc
	opts  options
	root  string
	owned bool
	mu    sync.Mutex
}

var _ Runner = (*GoRunner)(nil)

// NewGoRunner returns a runner whose workspaces live under the configured
// work directory.
func NewGoRunner(opts ...Option) (*GoRunner, error) {
	r := &GoRunner{opts: makeOptions(opts...)}
	r.build = r.goBuild

	r.root = r.opts.workDir
	if r.root == "" {
		dir, err := os.MkdirTemp("", "cflat-")
		if err != nil {
			return nil, ErrWorkspace.Wrap(err)
		}

		r.root, r.owned = dir, true
	}

	cache, err := lru.NewWithEvict(r.opts.cacheSize, func(key, value any) {
		if dir, ok := value.(string); ok {
			r.opts.logger.Debug("evicted build",
				slog.Any("key", key), slog.String("dir", dir))

			_ = os.RemoveAll(dir)
		}
	})
	if err != nil {
		return nil, ErrWorkspace.Wrap(err)
	}

	r.cache = cache

	return r, nil
}

// Close removes every cached build, and the work directory if the runner
// created it.
func (r *GoRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Purge()

	if r.owned {
		return os.RemoveAll(r.root)
	}

	return nil
}

// Key returns the cache key of source.
func Key(source string) string {
	return strconv.FormatUint(xxh3.HashString(source), 36)
}

// Run builds prog, unless an identical program was built before, and runs
// it.
func (r *GoRunner) Run(ctx context.Context, prog Program) (Result, error) {
	if !prog.HasEntry() {
		return Result{}, ErrNoEntry.With(slog.String("file", prog.Name))
	}

	bin, diags, cached, err := r.binary(ctx, prog)
	if err != nil {
		return Result{}, err
	}

	if len(diags) > 0 {
		return Result{Diagnostics: diags}, nil
	}

	res, err := r.execute(ctx, bin)
	res.Cached = cached

	return res, err
}

// binary returns the path of the executable built from prog.
func (r *GoRunner) binary(ctx context.Context, prog Program) (
	string, lang.Diagnostics, bool, error,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key(prog.Source)

	if value, ok := r.cache.Get(key); ok {
		bin := executable(value.(string))
		if _, err := os.Stat(bin); err == nil {
			r.opts.logger.TraceContext(ctx, "build cache hit",
				slog.String("key", key), slog.String("file", prog.Name))

			return bin, nil, true, nil
		}

		r.cache.Remove(key)
	}

	dir := filepath.Join(r.root, key)
	if err := writeWorkspace(dir, prog.Source); err != nil {
		_ = os.RemoveAll(dir)

		return "", nil, false, ErrWorkspace.Wrap(err).With(slog.String("dir", dir))
	}

	bin := executable(dir)

	out, err := r.build(ctx, dir, bin)
	if err != nil {
		if ctx.Err() != nil {
			_ = os.RemoveAll(dir)

			return "", nil, false, ctx.Err()
		}

		diags := Clean(dir, out)
		if len(diags) == 0 {
			_ = os.RemoveAll(dir)

			return "", nil, false, ErrToolchain.Wrap(err).
				With(slog.String("output", string(out)))
		}

		r.opts.logger.DebugContext(ctx, "build failed",
			slog.String("file", prog.Name), slog.Int("diagnostics", len(diags)))

		_ = os.RemoveAll(dir)

		return "", diags, false, nil
	}

	r.cache.Add(key, dir)

	r.opts.logger.TraceContext(ctx, "built",
		slog.String("key", key), slog.String("file", prog.Name))

	return bin, nil, false, nil
}

func (r *GoRunner) goBuild(ctx context.Context, dir, bin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.opts.goCommand, "build", "-o", bin, ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod", "GOTOOLCHAIN=local")
	cmd.Env = append(cmd.Env, r.opts.env...)

	return cmd.CombinedOutput()
}

func (r *GoRunner) execute(ctx context.Context, bin string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin)
	cmd.Env = append(os.Environ(), r.opts.env...)
	cmd.Stdout = tee(&stdout, r.opts.stdout)
	cmd.Stderr = tee(&stderr, r.opts.stderr)

	err := cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exit *exec.ExitError

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return res, ctx.Err()
	case errors.As(err, &exit):
		res.ExitCode = exit.ExitCode()
	default:
		return res, ErrExecute.Wrap(err).With(slog.String("bin", bin))
	}

	r.opts.logger.TraceContext(ctx, "ran",
		slog.String("bin", bin), slog.Int("exit", res.ExitCode))

	return res, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}

	return io.MultiWriter(buf, w)
}

func executable(dir string) string {
	name := "program"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return filepath.Join(dir, name)
}

// writeWorkspace lays out a module in dir holding the generated source, an
// entry file calling it, and a copy of the runtime package.
func writeWorkspace(dir, source string) error {
	module, pkg := path.Split(codegen.DefaultRuntimeImport)

	files := map[string]string{
		GoModFile:   "module " + path.Clean(module) + "\n\ngo " + goVersion + "\n",
		MainFile:    mainSource,
		ProgramFile: source,
	}

	rtDir := filepath.Join(dir, pkg)
	if err := os.MkdirAll(rtDir, 0o750); err != nil {
		return err
	}

	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o600); err != nil {
			return err
		}
	}

	return fs.WalkDir(rt.Sources, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := fs.ReadFile(rt.Sources, name)
		if err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(rtDir, name), data, 0o600)
	})
}
