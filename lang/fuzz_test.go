package lang

import (
	"context"
	"testing"
	"unicode/utf8"
)

// FuzzParse checks that no input makes the tokenizer or parser panic or
// stop making progress.
func FuzzParse(f *testing.F) {
	f.Add("main :: () { print(♩root ♪3rd); }")
	f.Add("struct S { i32 x; }")
	f.Add(`include "x";`)
	f.Add("f :: () -> seq { << m { ?, ?(5), ♩? }; }")
	f.Add("f :: () { x := ((1 + 2) * 3; }")
	f.Add("/* open")
	f.Add(`"open`)
	f.Add("}}}{{{;;;")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("panicked on input %q: %v", input, r)
			}
		}()

		root, diags, err := ParseSource(
			context.Background(),
			&Source{Name: "fuzz.cb", Text: []byte(input)},
			WithIncludePath(t.TempDir()),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, d := range diags {
			if d.Line < 0 {
				t.Errorf("negative line in %q", d)
			}
		}

		for n := range root.All() {
			if n != root && n.Root() != root {
				t.Errorf("%s node has the wrong root", n.Kind)
			}
		}
	})
}
