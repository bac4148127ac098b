package lang

import "github.com/ardnew/cflat/log"

// Option configures [Parse] and [ParseFile].
type Option func(*options)

type options struct {
	logger      log.Logger
	pool        *Pool
	active      map[string]bool
	includePath []string
}

func makeOptions(opts ...Option) *options {
	o := &options{active: map[string]bool{}}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithLogger sets the logger used for trace and debug records.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIncludePath adds directories searched for included files after the
// directory of the including file. The directories listed in the
// CFLAT_PATH environment variable are searched after these.
func WithIncludePath(dirs ...string) Option {
	return func(o *options) { o.includePath = append(o.includePath, dirs...) }
}

// WithPool sets the token pool used for included files. It defaults to the
// pool of the stream being parsed.
func WithPool(pool *Pool) Option {
	return func(o *options) { o.pool = pool }
}
