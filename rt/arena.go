package rt

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultArenaCapacity is the size in bytes of the process-wide arena.
const DefaultArenaCapacity = 128 << 20

// ErrArenaExhausted matches every [ArenaError].
var ErrArenaExhausted = errors.New("runtime is out of memory")

// ArenaError reports an allocation that would overflow an [Arena].
type ArenaError struct {
	Requested int
	Used      int
	Cap       int
}

func (e *ArenaError) Error() string {
	return fmt.Sprintf("%s: %d bytes requested, %d of %d in use",
		ErrArenaExhausted, e.Requested, e.Used, e.Cap)
}

// Is reports whether target is [ErrArenaExhausted].
func (e *ArenaError) Is(target error) bool { return target == ErrArenaExhausted }

// Region is a handle to bytes allocated from an [Arena]. It is valid until
// the arena is reset.
type Region struct {
	Offset int
	Len    int
	epoch  uint64
}

// Arena is a fixed-capacity bump allocator. Allocations are never freed
// individually; [Arena.Reset] invalidates all of them at once.
type Arena struct {
	mu    sync.Mutex
	buf   []byte
	cap   int
	off   int
	epoch uint64
}

// NewArena returns an arena of capacity bytes. The backing buffer is
// allocated on first use.
func NewArena(capacity int) *Arena {
	return &Arena{cap: max(capacity, 0)}
}

// Alloc reserves n bytes. When n bytes do not fit, Alloc returns an
// [*ArenaError] and the arena is left unchanged.
func (a *Arena) Alloc(n int) (Region, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n < 0 || n > a.cap-a.off {
		return Region{}, &ArenaError{Requested: n, Used: a.off, Cap: a.cap}
	}

	if a.buf == nil {
		a.buf = make([]byte, a.cap)
	}

	r := Region{Offset: a.off, Len: n, epoch: a.epoch}
	a.off += n

	return r, nil
}

// Bytes returns the memory of r. It panics if r was allocated before the
// last reset.
func (a *Arena) Bytes(r Region) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.epoch != a.epoch {
		panic("rt: region used after arena reset")
	}

	end := r.Offset + r.Len

	return a.buf[r.Offset:end:end]
}

// Valid reports whether r was allocated since the last reset.
func (a *Arena) Valid(r Region) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return r.epoch == a.epoch
}

// Reset rewinds the arena to empty.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.off = 0
	a.epoch++
}

// Used returns the number of bytes allocated since the last reset.
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.off
}

// Cap returns the capacity in bytes.
func (a *Arena) Cap() int { return a.cap }

//nolint:gochecknoglobals
var defaultArena = NewArena(DefaultArenaCapacity)

// DefaultArena returns the process-wide arena used by [NewSeq].
func DefaultArena() *Arena { return defaultArena }

// ResetDefaultArena rewinds the process-wide arena.
func ResetDefaultArena() { defaultArena.Reset() }
