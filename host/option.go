package host

import (
	"io"

	"github.com/ardnew/cflat/log"
)

// Defaults for [NewGoRunner].
const (
	DefaultGoCommand = "go"
	DefaultCacheSize = 16
)

// Option configures a [GoRunner].
type Option func(*options)

type options struct {
	logger    log.Logger
	stdout    io.Writer
	stderr    io.Writer
	goCommand string
	workDir   string
	env       []string
	cacheSize int
}

func makeOptions(opts ...Option) options {
	o := options{
		goCommand: DefaultGoCommand,
		cacheSize: DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger used for build and run records.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGoCommand sets the go executable used to build programs.
func WithGoCommand(path string) Option {
	return func(o *options) {
		if path != "" {
			o.goCommand = path
		}
	}
}

// WithWorkDir sets the directory that holds build workspaces. A temporary
// directory is created and removed by [GoRunner.Close] when unset.
func WithWorkDir(dir string) Option {
	return func(o *options) { o.workDir = dir }
}

// WithCacheSize sets how many built programs are kept.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithEnv adds environment entries ("KEY=value") for the toolchain and the
// program.
func WithEnv(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

// WithOutput copies the program's output to stdout and stderr as it runs,
// in addition to capturing it in the [Result].
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) { o.stdout, o.stderr = stdout, stderr }
}
