package codegen

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/expr-lang/expr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/rt"
)

func generate(t *testing.T, input string, opts ...Option) (string, lang.Diagnostics) {
	t.Helper()

	root, diags, err := lang.ParseSource(
		context.Background(),
		&lang.Source{Name: "test.cb", Text: []byte(input)},
	)
	require.NoError(t, err)
	require.Empty(t, diags, diags.String())

	return Generate(context.Background(), root, opts...)
}

// assignment returns the right hand side of the first "x := ..." line.
func assignment(t *testing.T, src string) string {
	t.Helper()

	for line := range strings.SplitSeq(src, "\n") {
		if rhs, ok := strings.CutPrefix(strings.TrimSpace(line), "x := "); ok {
			return rhs
		}
	}

	t.Fatalf("no assignment in:\n%s", src)

	return ""
}

func TestGenerate_Program(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `
main :: () {
	x := 1 + 2;
	print(x);
}
`)
	require.Empty(t, diags)

	want := `// Code generated by cflat. DO NOT EDIT.

package main

import . "github.com/ardnew/cflat/rt"

var _ = NewSeq

func cflatMain() {
	x := int32(1 + 2)
	_ = x
	Print(x)
}

func entry() {
	cflatMain()
}
`
	assert.Empty(t, cmp.Diff(want, src))
}

func TestGenerate_Expressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"a - b - c", "a - (b - c)"},
		{"(1 + 2) * (3 - 4)", "int32((1 + 2) * (3 - 4))"},
		{"((1 + 2) * 3) / 4", "int32(((1 + 2) * 3) / 4)"},
		{"a - 1", "a - 1"},
		{"a * b + c", "(a * b) + c"},
		{"a + b * c", "a + (b * c)"},
		{"1.5", "float32(1.5)"},
		{`"hi there"`, `"hi there"`},
		{`"a\tb"`, `"a\tb"`},
		{"3rd", "int32(4)"},
		{"1 == 2", "1 == 2"},
		{"cmaj", "CMaj"},
		{"♩root ♪2nd", "Notes(N(0, 0.25), N(2, 0.125))"},
		{"♩a ♪m.x + 1", "Notes(N(a, 0.25), N(m.x, 0.125)) + 1"},
		{"a.b.type", "a.b.type_"},
		{"tempo()", "Tempo()"},
		{"f(a, 1)", "f(a, 1)"},
		{"m { ?, ?(5) }", "Notes(m.At(0), WithPitch(m.At(1), 5))"},
		{
			"m { ♩?, ?3rd, ?(a + 1), ♩a }",
			"Notes(WithDuration(m.At(0), 0.25), WithPitch(m.At(1), 4), " +
				"WithPitch(m.At(2), a + 1), Notes(N(a, 0.25)))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			src, diags := generate(t,
				"f :: (i32 a, i32 b, i32 c, seq m) { x := "+tt.input+"; }",
				WithFormat(false),
			)
			require.Empty(t, diags, diags.String())
			assert.Equal(t, tt.want, assignment(t, src))
		})
	}
}

func TestGenerate_EvaluationOrder(t *testing.T) {
	t.Parallel()

	tests := []string{
		"(1 + 2) * (3 - 4)",
		"((1 + 2) * (3 - 4)) - (5 * (6 + 7))",
		"((8 - 3) - (2 - (1 + 1))) * 2",
		"(((9 - 1) / 2) + 3) * (4 - (6 / 3))",
		"1 - 2 - 3",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			src, diags := generate(t, "f :: () { x := "+input+"; }", WithFormat(false))
			require.Empty(t, diags)

			got, ok := strings.CutPrefix(assignment(t, src), "int32(")
			require.True(t, ok, src)
			got = strings.TrimSuffix(got, ")")

			want, err := expr.Eval(input, nil)
			require.NoError(t, err)

			if input == "1 - 2 - 3" {
				// Equal precedence operators group to the right.
				want, err = expr.Eval("1 - (2 - 3)", nil)
				require.NoError(t, err)
			}

			have, err := expr.Eval(got, nil)
			require.NoError(t, err)
			assert.Equal(t, want, have, got)
		})
	}
}

func TestGenerate_Placeholder(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, "main :: () {\n x := ?;\n y := f(?);\n}")
	require.Len(t, diags, 2)

	want := "test.cb(2): The '?' placeholder can only be used when creating " +
		"variations of existing note sequences."
	assert.Equal(t, want, diags[0].String())
	assert.Equal(t, 3, diags[1].Line)
	assert.Contains(t, src, "x := Note{}")
}

func TestGenerate_PlaceholderNested(t *testing.T) {
	t.Parallel()

	_, diags := generate(t, "f :: (seq m) { x := m { ♩root ♩? }; }")
	require.Len(t, diags, 1)
}

func TestGenerate_Seq(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `
m :: () -> seq {
	<< ♩root;
	<< x := ♩3rd;
	y := << x;
	return;
}
`, WithFormat(false))
	require.Empty(t, diags, diags.String())

	want := `
func m() *Seq {
	__seq := NewSeq()
	__seq.Append(Notes(N(0, 0.25)))
	x := Notes(N(4, 0.25))
	_ = x
	__seq.Append(x)
	y := __seq.Append(x)
	_ = y
	return __seq
	return __seq
}
`
	assert.Contains(t, src, want)
}

func TestGenerate_YieldOutsideSeq(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, "f :: () -> i32 {\n << 1;\n return 2;\n}")
	require.Len(t, diags, 1)
	assert.Equal(t,
		"test.cb(2): '<<' can only be used inside methods returning 'seq'.",
		diags[0].String())
	assert.Contains(t, src, "_ = 1")
	assert.NotContains(t, src, "__seq")
}

func TestGenerate_Locals(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `f :: (i32 a) {
	x := 1;
	x := 2;
	a := 3;
	x' := x;
	g(x');
	x + 1;
}`, WithFormat(false))
	require.Empty(t, diags)

	want := `
func f(a int32) {
	x := int32(1)
	_ = x
	x = 2
	a = 3
	x__v := x
	_ = x__v
	g(x__v)
	_ = x + 1
}
`
	assert.Contains(t, src, want)
}

func TestGenerate_Renames(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `
struct Note { i32 type; f32 next; }
Print :: (i32 range) -> i32 { N := range; return N; }
main :: () -> i32 { return Print(1); }
`, WithFormat(false))
	require.Empty(t, diags)

	for _, want := range []string{
		"type Note_1 struct {\n\ttype_ int32\n\tnext float32\n}",
		"func Print_2(range_3 int32) int32 {",
		"\tN_4 := range_3\n\t_ = N_4\n\treturn N_4\n",
		"func cflatMain() int32 {\n\treturn Print_2(1)\n}",
		"func entry() {\n\tPrint(cflatMain())\n}",
	} {
		assert.Contains(t, src, want)
	}
}

func TestGenerate_Builtins(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `f :: (scale s) {
	using(s);
	tempo(90);
	signature(3, 4);
	print(tempo());
}`, WithFormat(false))
	require.Empty(t, diags)

	assert.Contains(t, src,
		"func f(s Scale) {\n\tUsing(s)\n\tSetTempo(90)\n\tSignature(3, 4)\n\tPrint(Tempo())\n}")
	assert.NotContains(t, src, "func entry")
}

func TestGenerate_Folding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "int32(7)"},
		{"3rd + octave", "int32(16)"},
		{"(1 - 2) * (3 + 4)", "int32(-7)"},
		{"5", "int32(5)"},
		{"a + 1", "a + 1"},
		{"4 / 2", "int32(4 / 2)"},
		{"2147483647 + 1", "int32(2147483647 + 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			src, diags := generate(t,
				"f :: (i32 a) { x := "+tt.input+"; }",
				WithConstantFolding(true), WithFormat(false),
			)
			require.Empty(t, diags)
			assert.Equal(t, tt.want, assignment(t, src))
		})
	}
}

func TestGenerate_Options(t *testing.T) {
	t.Parallel()

	src, _ := generate(t, "f :: () { }",
		WithPackage("song"), WithRuntimeImport("example.com/x/rt"))

	assert.Contains(t, src, "package song\n")
	assert.Contains(t, src, `import . "example.com/x/rt"`)
}

func TestGenerate_Include(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.cb"),
		[]byte("struct P { f32 x; }\nhelper :: () -> i32 { return 1; }\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.cb"),
		[]byte("include \"lib\";\nmain :: () { print(helper()); }\n"), 0o600))

	root, diags, err := lang.ParseFile(context.Background(), filepath.Join(dir, "main.cb"))
	require.NoError(t, err)
	require.Empty(t, diags)

	src, diags := Generate(context.Background(), root)
	require.Empty(t, diags)

	assert.Contains(t, src, "type P struct {")
	assert.Contains(t, src, "func helper() int32 {")
	assert.Contains(t, src, "Print(helper())")
}

func TestGenerate_Parses(t *testing.T) {
	t.Parallel()

	src, diags := generate(t, `
struct Chord { i32 base; seq notes; }

arpeggio :: (i32 base, i32 spread) -> seq {
	using(cmaj);
	<< ♩base ♩spread ♪base;
	up := ♩root ♩3rd ♩5th;
	<< up { ?, ?octave, ♪? };
	return;
}

main :: () -> seq {
	tempo(140);
	a := arpeggio(0, 4);
	return a;
}
`)
	require.Empty(t, diags, diags.String())

	typecheck(t, src)
}

func TestGenerate_TypeChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "local_argument",
			input: "f :: (i32 a) -> i32 { return a + 1; }\nmain :: () { x := 2; print(f(x)); }",
		},
		{
			name:  "local_result",
			input: "main :: () -> i32 {\n\tx := 1 + 2;\n\treturn x * 4;\n}",
		},
		{
			name:  "interval_locals",
			input: "k :: () -> i32 { x := 3rd; y := x + octave; x := 5; return y - x; }",
		},
		{
			name:  "field_argument",
			input: "struct P { i32 v; }\nf :: (i32 a) { print(a); }\ng :: (P p) { n := 7; f(n); f(p.v); }",
		},
		{
			name:  "notes_from_locals",
			input: "m :: () -> seq { p := 3rd; << ♩p ♪root; return; }",
		},
		{
			name:  "string_local",
			input: "main :: () { s := \"a\\tb\"; print(s); }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, diags := generate(t, tt.input, WithConstantFolding(true))
			require.Empty(t, diags, diags.String())

			typecheck(t, src)
		})
	}
}

// typecheck fails the test if src does not type-check against the runtime
// package.
func typecheck(t *testing.T, src string) {
	t.Helper()

	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, "program.go", src, parser.AllErrors)
	require.NoError(t, err, src)

	conf := types.Config{Importer: &runtimeImporter{
		fset: fset,
		std:  importer.ForCompiler(fset, "source", nil),
	}}

	_, err = conf.Check("main", fset, []*ast.File{f}, nil)
	require.NoError(t, err, src)
}

// runtimeImporter checks the embedded runtime sources for the runtime import
// and reads every other package from the standard library sources.
type runtimeImporter struct {
	fset *token.FileSet
	std  types.Importer
	rt   *types.Package
}

func (r *runtimeImporter) Import(path string) (*types.Package, error) {
	if path != DefaultRuntimeImport {
		return r.std.Import(path)
	}

	if r.rt != nil {
		return r.rt, nil
	}

	var files []*ast.File

	err := fs.WalkDir(rt.Sources, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := fs.ReadFile(rt.Sources, name)
		if err != nil {
			return err
		}

		f, err := parser.ParseFile(r.fset, name, data, 0)
		if err != nil {
			return err
		}

		files = append(files, f)

		return nil
	})
	if err != nil {
		return nil, err
	}

	conf := types.Config{Importer: r.std}

	r.rt, err = conf.Check(path, r.fset, files, nil)

	return r.rt, err
}

func TestRuntimeNames(t *testing.T) {
	t.Parallel()

	exported := map[string]bool{"Sources": true}

	err := fs.WalkDir(rt.Sources, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := fs.ReadFile(rt.Sources, path)
		if err != nil {
			return err
		}

		f, err := parser.ParseFile(token.NewFileSet(), path, data, parser.SkipObjectResolution)
		if err != nil {
			return err
		}

		for name, obj := range collectDecls(f) {
			if ast.IsExported(name) {
				exported[name] = obj
			}
		}

		return nil
	})
	require.NoError(t, err)

	for name := range exported {
		assert.True(t, runtimeNames[name], "runtime name %s is not reserved", name)
	}

	for name := range runtimeNames {
		assert.True(t, exported[name], "reserved name %s is not exported by the runtime", name)
	}
}

func collectDecls(f *ast.File) map[string]bool {
	names := map[string]bool{}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				names[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					names[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						names[n.Name] = true
					}
				}
			}
		}
	}

	return names
}
