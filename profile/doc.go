// Package profile provides optional runtime profiling for cflat.
//
// Profiling wraps [github.com/pkg/profile] and is compiled in only with the
// "pprof" build tag. Without the tag, [Modes] is empty and every
// [Profiler] is a no-op.
//
//	go build -tags pprof -o cflat .
//	cflat --pprof-mode=cpu run song.cb
//	go tool pprof -http=: ~/.cache/cflat/pprof/cpu.pprof
//
// The supported modes are allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread and trace. Building with the tag also registers the
// [net/http/pprof] handlers on the default mux.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
