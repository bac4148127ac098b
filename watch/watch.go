package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rjeczalik/notify"

	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/rt"
)

// Extension is the suffix of files whose changes trigger a job.
const Extension = ".cb"

// ErrWatch is returned when a directory cannot be watched.
var ErrWatch = lang.NewError("failed to watch directory")

// Job is one compile-and-run cycle of the target.
type Job struct {
	Queued  time.Time
	Path    string
	Trigger string
	ID      uuid.UUID
}

// Handler runs a job. Returning an error wrapping [rt.ErrArenaExhausted]
// marks the cycle as out of memory. The next job still runs.
type Handler func(ctx context.Context, job Job) error

// Loop reruns a target file whenever a source file next to it changes. Jobs
// are handled one at a time in the order they were queued.
type Loop struct {
	handler Handler
	pending map[string]bool
	jobs    chan Job
	target  string
	opts    options
	mu      sync.Mutex
}

// New returns a loop that passes jobs for target to handler.
func New(target string, handler Handler, opts ...Option) (*Loop, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, ErrWatch.Wrap(err)
	}

	o := makeOptions(opts...)

	return &Loop{
		handler: handler,
		pending: map[string]bool{},
		jobs:    make(chan Job, o.queue),
		target:  abs,
		opts:    o,
	}, nil
}

// Target returns the absolute path of the file the loop runs.
func (l *Loop) Target() string { return l.target }

// Dirs returns the watched directories.
func (l *Loop) Dirs() []string {
	dirs := []string{filepath.Dir(l.target)}

	seen := map[string]bool{dirs[0]: true}

	for _, d := range l.opts.dirs {
		abs, err := filepath.Abs(d)
		if err != nil || seen[abs] {
			continue
		}

		seen[abs] = true
		dirs = append(dirs, abs)
	}

	return dirs
}

// Run watches the loop's directories and handles jobs until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	events := make(chan notify.EventInfo, l.opts.queue)

	for _, dir := range l.Dirs() {
		err := notify.Watch(dir, events, notify.Write, notify.Create, notify.Rename)
		if err != nil {
			notify.Stop(events)

			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}
	}

	defer notify.Stop(events)

	changes := make(chan string)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				select {
				case changes <- ev.Path():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return l.serve(ctx, changes)
}

// serve queues a job for every relevant path received on changes and
// handles queued jobs until ctx is done. When changes is closed, the jobs
// already queued are handled before serve returns.
func (l *Loop) serve(ctx context.Context, changes <-chan string) error {
	var wg sync.WaitGroup

	drain := make(chan struct{})

	wg.Add(1)

	go func() {
		defer wg.Done()
		l.consume(ctx, drain)
	}()

	defer wg.Wait()

	if l.opts.initial {
		l.Submit(ctx, l.target)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-changes:
			if !ok {
				close(drain)

				return nil
			}

			if filepath.Ext(path) != Extension {
				continue
			}

			l.Submit(ctx, path)
		}
	}
}

// Submit queues a job for the target triggered by a change to path. It
// reports false if a job is already waiting, in which case the change is
// folded into that job.
func (l *Loop) Submit(ctx context.Context, path string) bool {
	l.mu.Lock()

	if l.pending[l.target] {
		l.mu.Unlock()
		l.opts.logger.TraceContext(ctx, "change coalesced", slog.String("path", path))

		return false
	}

	l.pending[l.target] = true
	l.mu.Unlock()

	job := Job{
		Queued:  time.Now(),
		Path:    l.target,
		Trigger: path,
		ID:      uuid.New(),
	}

	select {
	case l.jobs <- job:
		l.opts.logger.DebugContext(ctx, "job queued",
			slog.String("job", job.ID.String()), slog.String("trigger", path))

		return true
	case <-ctx.Done():
		l.settle(job)

		return false
	}
}

func (l *Loop) settle(job Job) {
	l.mu.Lock()
	delete(l.pending, job.Path)
	l.mu.Unlock()
}

func (l *Loop) consume(ctx context.Context, drain <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-l.jobs:
			l.run(ctx, job)
		case <-drain:
			for {
				select {
				case job := <-l.jobs:
					l.run(ctx, job)
				default:
					return
				}
			}
		}
	}
}

// run waits out the debounce window of job and handles it.
func (l *Loop) run(ctx context.Context, job Job) {
	if wait := l.opts.debounce - time.Since(job.Queued); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	l.settle(job)
	l.handle(ctx, job)
}

func (l *Loop) handle(ctx context.Context, job Job) {
	if l.opts.reset != nil {
		l.opts.reset()
	}

	start := time.Now()
	err := l.handler(ctx, job)

	attrs := []slog.Attr{
		slog.String("job", job.ID.String()),
		slog.Duration("elapsed", time.Since(start)),
	}

	switch {
	case err == nil:
		l.opts.logger.DebugContext(ctx, "job done", attrs...)
	case errors.Is(err, rt.ErrArenaExhausted):
		l.opts.logger.WarnContext(ctx, "job ran out of memory", attrs...)
	case ctx.Err() != nil:
	default:
		l.opts.logger.ErrorContext(ctx, "job failed",
			append(attrs, slog.String("error", err.Error()))...)
	}
}
