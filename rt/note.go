package rt

import "fmt"

// Integer is the set of types accepted where generated code passes a pitch
// or a count.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Note is a pitch in semitones and a duration in whole notes.
type Note struct {
	Pitch    int32
	Duration float32
}

// N returns a note of pitch p lasting d whole notes.
func N[P Integer](p P, d float32) Note {
	return Note{Pitch: int32(p), Duration: d}
}

// Add returns n raised by offset semitones.
func (n Note) Add(offset int32) Note {
	n.Pitch += offset

	return n
}

// Sub returns n lowered by offset semitones.
func (n Note) Sub(offset int32) Note {
	n.Pitch -= offset

	return n
}

func (n Note) String() string {
	return fmt.Sprintf("{ pitch = %d, duration = %g }", n.Pitch, n.Duration)
}

func (n Note) appendTo(s *Seq) { s.push(n) }

// WithPitch returns n with its pitch replaced by p.
func WithPitch[P Integer](n Note, p P) Note {
	n.Pitch = int32(p)

	return n
}

// WithDuration returns n with its duration replaced by d.
func WithDuration(n Note, d float32) Note {
	n.Duration = d

	return n
}
