package rt

import "fmt"

// Scale transposes appended sequences by its root.
type Scale struct {
	Root  int32
	Minor bool
}

// Named scales.
//
//nolint:gochecknoglobals
var (
	CMaj = Scale{Root: 0}
	DMaj = Scale{Root: 2}
	EMaj = Scale{Root: 4}
	FMaj = Scale{Root: 5}
	GMaj = Scale{Root: 7}
	AMaj = Scale{Root: 9}
	BMaj = Scale{Root: 11}

	CMin = Scale{Root: 0, Minor: true}
	DMin = Scale{Root: 2, Minor: true}
	EMin = Scale{Root: 4, Minor: true}
	FMin = Scale{Root: 5, Minor: true}
	GMin = Scale{Root: 7, Minor: true}
	AMin = Scale{Root: 9, Minor: true}
	BMin = Scale{Root: 11, Minor: true}
)

// ScaleOf returns the major scale rooted at root.
func ScaleOf(root int32) Scale { return Scale{Root: root} }

// Int returns the root.
func (s Scale) Int() int32 { return s.Root }

// Add returns s with its root raised by offset semitones.
func (s Scale) Add(offset int32) Scale {
	s.Root += offset

	return s
}

func (s Scale) String() string {
	names := [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

	quality := "major"
	if s.Minor {
		quality = "minor"
	}

	return fmt.Sprintf("%s %s", names[((s.Root%12)+12)%12], quality)
}
