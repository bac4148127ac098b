package watch

import (
	"time"

	"github.com/ardnew/cflat/log"
)

// Defaults for [New].
const (
	DefaultDebounce  = 100 * time.Millisecond
	DefaultQueueSize = 8
)

// Option configures a [Loop].
type Option func(*options)

type options struct {
	logger   log.Logger
	reset    func()
	dirs     []string
	debounce time.Duration
	queue    int
	initial  bool
}

func makeOptions(opts ...Option) options {
	o := options{
		debounce: DefaultDebounce,
		queue:    DefaultQueueSize,
		initial:  true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger used for job records.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDirs adds directories whose source files trigger a job when they
// change. The directory of the target is always watched.
func WithDirs(dirs ...string) Option {
	return func(o *options) { o.dirs = append(o.dirs, dirs...) }
}

// WithDebounce sets how long a job waits after it is queued before it runs.
// Changes arriving in that window are folded into it.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queue = n
		}
	}
}

// WithReset sets a function called before each job. Handlers that run
// programs in the watching process pass
// [github.com/ardnew/cflat/rt.Reset] so every job starts from
// an empty arena; programs run in their own process need no reset.
func WithReset(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.reset = fn
		}
	}
}

// WithInitialRun sets whether a job for the target is queued when the loop
// starts.
func WithInitialRun(enable bool) Option {
	return func(o *options) { o.initial = enable }
}
