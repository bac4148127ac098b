package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cflat/log"
	"github.com/ardnew/cflat/rt"
)

type recorder struct {
	mu       sync.Mutex
	triggers []string
	resets   atomic.Int32
}

func (r *recorder) record(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.triggers = append(r.triggers, filepath.Base(job.Trigger))
}

func (r *recorder) runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.triggers...)
}

func newLoop(t *testing.T, handler Handler, opts ...Option) *Loop {
	t.Helper()

	l, err := New(filepath.Join(t.TempDir(), "main.cb"), handler, opts...)
	require.NoError(t, err)

	return l
}

func TestLoop_Coalesce(t *testing.T) {
	t.Parallel()

	var rec recorder

	l := newLoop(t, func(_ context.Context, job Job) error {
		rec.record(job)

		return nil
	}, WithInitialRun(false), WithDebounce(100*time.Millisecond), WithReset(func() { rec.resets.Add(1) }))

	changes := make(chan string)
	done := make(chan error)

	go func() { done <- l.serve(context.Background(), changes) }()

	changes <- "/src/a.cb"
	changes <- "/src/b.cb"
	changes <- "/src/notes.txt"
	close(changes)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"a.cb"}, rec.runs())
	assert.EqualValues(t, 1, rec.resets.Load())
}

func TestLoop_Serial(t *testing.T) {
	t.Parallel()

	var (
		rec     recorder
		active  atomic.Int32
		maximum atomic.Int32
	)

	started := make(chan struct{}, 2)
	release := make(chan struct{})

	l := newLoop(t, func(_ context.Context, job Job) error {
		n := active.Add(1)
		defer active.Add(-1)

		if n > maximum.Load() {
			maximum.Store(n)
		}

		rec.record(job)
		started <- struct{}{}
		<-release

		return nil
	}, WithInitialRun(false), WithDebounce(0))

	changes := make(chan string)
	done := make(chan error)

	go func() { done <- l.serve(context.Background(), changes) }()

	changes <- "/src/a.cb"
	<-started

	changes <- "/src/b.cb"
	changes <- "/src/c.cb"
	close(changes)
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"a.cb", "b.cb"}, rec.runs())
	assert.EqualValues(t, 1, maximum.Load())
}

func TestLoop_InitialRun(t *testing.T) {
	t.Parallel()

	var rec recorder

	l := newLoop(t, func(_ context.Context, job Job) error {
		rec.record(job)

		return nil
	}, WithDebounce(0))

	changes := make(chan string)
	close(changes)

	require.NoError(t, l.serve(context.Background(), changes))
	assert.Equal(t, []string{"main.cb"}, rec.runs())
}

func TestLoop_ArenaExhausted(t *testing.T) {
	t.Parallel()

	var (
		buf   bytes.Buffer
		rec   recorder
		calls atomic.Int32
	)

	logger := log.Make(&buf, log.WithLevel(log.LevelDebug), log.WithTimeLayout("none"))

	l := newLoop(t, func(_ context.Context, job Job) error {
		rec.record(job)

		switch calls.Add(1) {
		case 1:
			return fmt.Errorf("run: %w", rt.ErrArenaExhausted)
		case 2:
			return fmt.Errorf("exit status 1")
		}

		return nil
	},
		WithInitialRun(false),
		WithDebounce(0),
		WithLogger(logger),
		WithReset(func() { rec.resets.Add(1) }),
	)

	ctx := context.Background()

	for _, path := range []string{"a.cb", "b.cb", "c.cb"} {
		changes := make(chan string, 1)
		changes <- path
		close(changes)

		require.NoError(t, l.serve(ctx, changes))
	}

	assert.Equal(t, []string{"a.cb", "b.cb", "c.cb"}, rec.runs())
	assert.EqualValues(t, 3, rec.resets.Load())
	assert.Contains(t, buf.String(), "job ran out of memory")
	assert.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "job done")
}

func TestLoop_Canceled(t *testing.T) {
	t.Parallel()

	l := newLoop(t, func(context.Context, Job) error { return nil }, WithInitialRun(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, l.serve(ctx, make(chan string)), context.Canceled)
}

func TestLoop_Dirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")

	l, err := New(filepath.Join(dir, "main.cb"), nil, WithDirs(lib, dir, lib))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "main.cb"), l.Target())
	assert.Equal(t, []string{dir, lib}, l.Dirs())
}

func TestLoop_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("watches the file system")
	}

	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "main.cb")
	require.NoError(t, os.WriteFile(target, []byte("main :: () { }\n"), 0o600))

	jobs := make(chan Job, 4)

	l, err := New(target, func(_ context.Context, job Job) error {
		jobs <- job

		return nil
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = l.Run(ctx) }()

	select {
	case job := <-jobs:
		assert.Equal(t, target, job.Trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("initial job not run")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.cb"), []byte("x :: () { }\n"), 0o600))

	select {
	case job := <-jobs:
		assert.Equal(t, target, job.Path)
		assert.Equal(t, "lib.cb", filepath.Base(job.Trigger))
	case <-time.After(5 * time.Second):
		t.Fatal("change not picked up")
	}
}

func TestLoop_Reset(t *testing.T) {
	rt.Reset()
	t.Cleanup(rt.Reset)

	serve := func(l *Loop) {
		changes := make(chan string)
		done := make(chan error)

		go func() { done <- l.serve(context.Background(), changes) }()

		changes <- "/src/a.cb"
		close(changes)

		require.NoError(t, <-done)
	}

	s := rt.Notes(rt.N(1, 1))

	var handled atomic.Int32

	handler := func(context.Context, Job) error {
		handled.Add(1)

		return nil
	}

	// Programs normally run in their own process, so the arena of the
	// watching process is left alone by default.
	serve(newLoop(t, handler, WithInitialRun(false), WithDebounce(0)))
	assert.EqualValues(t, 1, handled.Load())
	assert.NotPanics(t, func() { s.At(0) })

	serve(newLoop(t, handler, WithInitialRun(false), WithDebounce(0), WithReset(rt.Reset)))
	assert.EqualValues(t, 2, handled.Load())
	assert.Panics(t, func() { s.At(0) })
}
