package rt

import (
	"encoding/binary"
	"iter"
	"math"
	"strings"
)

// DefaultSeqCapacity is the number of notes a new sequence holds before it
// first grows.
const DefaultSeqCapacity = 512

const noteSize = 8

// Item is a value that can be appended to a [Seq]: a [Note] or a *[Seq].
type Item interface {
	appendTo(s *Seq)
}

// Seq is a growable list of notes stored in an [Arena]. Each note takes 8
// bytes: the little-endian pitch followed by the duration's float32 bits.
// Growing doubles the capacity and copies into a new region; the old region
// is reclaimed only when the arena is reset.
//
// A Seq panics with an [*ArenaError] when the arena is exhausted.
type Seq struct {
	arena  *Arena
	region Region
	len    int
}

// NewSeq returns an empty sequence in the default arena.
func NewSeq() *Seq { return NewSeqIn(DefaultArena(), DefaultSeqCapacity) }

// NewSeqIn returns an empty sequence in a with room for capacity notes.
func NewSeqIn(a *Arena, capacity int) *Seq {
	s := &Seq{arena: a}
	s.region = s.alloc(max(capacity, 1))

	return s
}

// Notes returns a new sequence holding items in order. Sequences among
// items are flattened without transposition.
func Notes(items ...Item) *Seq {
	s := NewSeqIn(DefaultArena(), max(DefaultSeqCapacity, len(items)))

	for _, it := range items {
		if seq, ok := it.(*Seq); ok {
			for _, n := range seq.All() {
				s.push(n)
			}

			continue
		}

		it.appendTo(s)
	}

	return s
}

func (s *Seq) alloc(notes int) Region {
	r, err := s.arena.Alloc(notes * noteSize)
	if err != nil {
		panic(err)
	}

	return r
}

func (s *Seq) capacity() int { return s.region.Len / noteSize }

func (s *Seq) push(n Note) {
	if s.len == s.capacity() {
		grown := s.alloc(s.capacity() * 2)
		copy(s.arena.Bytes(grown), s.arena.Bytes(s.region)[:s.len*noteSize])
		s.region = grown
	}

	b := s.arena.Bytes(s.region)[s.len*noteSize:]
	binary.LittleEndian.PutUint32(b, uint32(n.Pitch))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(n.Duration))
	s.len++
}

func (s *Seq) appendTo(dst *Seq) {
	for _, n := range s.All() {
		dst.push(n)
	}
}

// Append adds items to the end of s, transposed by the ambient scale, and
// returns s.
func (s *Seq) Append(items ...Item) *Seq {
	root := CurrentScale().Root

	for _, it := range items {
		switch v := it.(type) {
		case Note:
			s.push(v.Add(root))
		case *Seq:
			// Snapshot first so appending s to itself terminates.
			notes := make([]Note, 0, v.Len())
			for _, n := range v.All() {
				notes = append(notes, n.Add(root))
			}

			for _, n := range notes {
				s.push(n)
			}
		default:
			it.appendTo(s)
		}
	}

	return s
}

// Len returns the number of notes.
func (s *Seq) Len() int { return s.len }

// At returns the i-th note. It panics if i is out of range.
func (s *Seq) At(i int) Note {
	if i < 0 || i >= s.len {
		panic("rt: sequence index out of range")
	}

	b := s.arena.Bytes(s.region)[i*noteSize:]

	return Note{
		Pitch:    int32(binary.LittleEndian.Uint32(b)),
		Duration: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
	}
}

// First returns the first note, or the zero Note if s is empty.
func (s *Seq) First() Note {
	if s.len == 0 {
		return Note{}
	}

	return s.At(0)
}

// Last returns the last note. It panics if s is empty.
func (s *Seq) Last() Note { return s.At(s.len - 1) }

// Int returns the pitch of a single-note sequence. It panics otherwise.
func (s *Seq) Int() int32 {
	if s.len != 1 {
		panic("rt: only a single-note sequence converts to a pitch")
	}

	return s.At(0).Pitch
}

// All returns an iterator over the index and value of every note.
func (s *Seq) All() iter.Seq2[int, Note] {
	return func(yield func(int, Note) bool) {
		for i := range s.len {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

// String renders one note per line.
func (s *Seq) String() string {
	var sb strings.Builder

	for i, n := range s.All() {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(n.String())
	}

	return sb.String()
}
