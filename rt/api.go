package rt

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
)

// Defaults restored by [Reset].
const (
	DefaultTempo           = 120
	DefaultSignatureTop    = 4
	DefaultSignatureBottom = 4
)

type ambient struct {
	mu     sync.Mutex
	out    io.Writer
	scale  Scale
	tempo  int
	top    int
	bottom int
}

//nolint:gochecknoglobals
var state = ambient{
	out:    os.Stdout,
	tempo:  DefaultTempo,
	top:    DefaultSignatureTop,
	bottom: DefaultSignatureBottom,
}

// Using sets the ambient scale. An integer selects the major scale rooted
// at that pitch.
func Using[S Scale | Integer](s S) {
	var sc Scale

	switch v := any(s).(type) {
	case Scale:
		sc = v
	default:
		sc = ScaleOf(int32(reflect.ValueOf(v).Int()))
	}

	state.mu.Lock()
	state.scale = sc
	state.mu.Unlock()
}

// CurrentScale returns the ambient scale.
func CurrentScale() Scale {
	state.mu.Lock()
	defer state.mu.Unlock()

	return state.scale
}

// Print writes v and a newline to the output, "null" for nil.
func Print(v any) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if v == nil {
		fmt.Fprintln(state.out, "null")

		return
	}

	fmt.Fprintln(state.out, v)
}

// SetOutput redirects [Print]. A nil w restores os.Stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	state.mu.Lock()
	state.out = w
	state.mu.Unlock()
}

// Tempo returns the tempo in beats per minute.
func Tempo() int {
	state.mu.Lock()
	defer state.mu.Unlock()

	return state.tempo
}

// SetTempo sets the tempo in beats per minute.
func SetTempo[T Integer](bpm T) {
	state.mu.Lock()
	state.tempo = int(bpm)
	state.mu.Unlock()
}

// Signature sets the time signature.
func Signature[T Integer](top, bottom T) {
	state.mu.Lock()
	state.top, state.bottom = int(top), int(bottom)
	state.mu.Unlock()
}

// CurrentSignature returns the time signature.
func CurrentSignature() (top, bottom int) {
	state.mu.Lock()
	defer state.mu.Unlock()

	return state.top, state.bottom
}

// Reset restores the ambient defaults and rewinds the default arena. The
// output set by [SetOutput] is kept.
func Reset() {
	state.mu.Lock()
	state.scale = Scale{}
	state.tempo = DefaultTempo
	state.top, state.bottom = DefaultSignatureTop, DefaultSignatureBottom
	state.mu.Unlock()

	ResetDefaultArena()
}
