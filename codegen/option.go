package codegen

import "github.com/ardnew/cflat/log"

// Defaults for [Generate].
const (
	DefaultPackage       = "main"
	DefaultRuntimeImport = "github.com/ardnew/cflat/rt"
)

// Option configures [Generate].
type Option func(*options)

type options struct {
	logger  log.Logger
	pkg     string
	runtime string
	fold    bool
	format  bool
}

func makeOptions(opts ...Option) options {
	o := options{
		pkg:     DefaultPackage,
		runtime: DefaultRuntimeImport,
		format:  true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger used for trace records.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPackage sets the package clause of the generated file.
func WithPackage(name string) Option {
	return func(o *options) { o.pkg = name }
}

// WithRuntimeImport sets the import path of the runtime package.
func WithRuntimeImport(path string) Option {
	return func(o *options) { o.runtime = path }
}

// WithConstantFolding enables evaluating integer-only expressions at
// generation time.
func WithConstantFolding(enabled bool) Option {
	return func(o *options) { o.fold = enabled }
}

// WithFormat enables gofmt formatting of the output. It is on by default.
func WithFormat(enabled bool) Option {
	return func(o *options) { o.format = enabled }
}
