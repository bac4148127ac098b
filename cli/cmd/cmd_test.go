package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/host"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/rt"
	"github.com/ardnew/cflat/watch"
)

const mainSource = "main :: () -> i32 {\n\tx := 1 + 2;\n\treturn x * 4;\n}\n"

// testContext returns a context whose commands write to the returned
// buffers.
func testContext(t *testing.T) (context.Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	ctx := WithOutput(context.Background(), Output{Stdout: &stdout, Stderr: &stderr})

	return ctx, &stdout, &stderr
}

func writeSource(t *testing.T, name, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	return path
}

func newBuild(source string) *Build {
	return &Build{
		Output:  stdinSource,
		Package: codegen.DefaultPackage,
		Runtime: codegen.DefaultRuntimeImport,
		Source:  source,
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	ctx, stdout, stderr := testContext(t)

	require.NoError(t, newBuild(writeSource(t, "main.cb", mainSource)).Run(ctx))
	assert.Empty(t, stderr.String())

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, codegen.Header), out)
	assert.Contains(t, out, "func "+codegen.MainFunc+"() int32 {")
	assert.Contains(t, out, "func "+codegen.EntryFunc+"() {")
}

func TestBuild_OutputFile(t *testing.T) {
	t.Parallel()

	ctx, stdout, _ := testContext(t)

	b := newBuild(writeSource(t, "main.cb", mainSource))
	b.Output = filepath.Join(t.TempDir(), "program.go")
	b.Fold = true

	require.NoError(t, b.Run(ctx))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(b.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "x := int32(3)")
}

func TestBuild_Diagnostics(t *testing.T) {
	t.Parallel()

	ctx, stdout, stderr := testContext(t)

	path := writeSource(t, "bad.cb", "main :: () {\n\tx := ?;\n}\n")

	err := newBuild(path).Run(ctx)
	require.ErrorIs(t, err, ErrDiagnostics)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "bad.cb(2): The '?' placeholder")
}

func TestBuild_MissingFile(t *testing.T) {
	t.Parallel()

	ctx, _, _ := testContext(t)

	err := newBuild(filepath.Join(t.TempDir(), "none.cb")).Run(ctx)
	require.ErrorIs(t, err, lang.ErrReadInput)
}

func TestTokens(t *testing.T) {
	t.Parallel()

	ctx, stdout, _ := testContext(t)

	cmd := &Tokens{Source: writeSource(t, "t.cb", "x :: () {\n\"3rd\" 3rd;\n}\n")}
	require.NoError(t, cmd.Run(ctx))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "1\tidentifier\tx", lines[0])
	assert.Equal(t, "2\tstring\t3rd", lines[5])
	assert.Equal(t, "2\tkeyword\t3rd", lines[6])
}

func TestAST(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "a.cb", "f :: (i32 a) -> i32 {\n\treturn a;\n}\n")

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{
			format: "tree",
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "  Method f (i32 a) -> i32\n")
				assert.Contains(t, out, "    Return\n")
			},
		},
		{
			format: "json",
			check: func(t *testing.T, out string) {
				t.Helper()

				var m map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &m))
				assert.Equal(t, "Ast", m["kind"])
			},
		},
		{
			format: "yaml",
			check: func(t *testing.T, out string) {
				t.Helper()

				var m map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(out), &m))
				assert.Equal(t, "Ast", m["kind"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			ctx, stdout, _ := testContext(t)

			require.NoError(t, (&AST{Format: tt.format, Indent: 2, Source: path}).Run(ctx))
			tt.check(t, stdout.String())
		})
	}
}

func TestIncludePath(t *testing.T) {
	t.Parallel()

	lib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lib, "lib.cb"),
		[]byte("twice :: (i32 a) -> i32 {\n\treturn a * 2;\n}\n"), 0o600))

	path := writeSource(t, "main.cb", "include \"lib\";\nmain :: () -> i32 {\n\treturn twice(4);\n}\n")

	ctx, stdout, stderr := testContext(t)

	err := newBuild(path).Run(ctx)
	require.ErrorIs(t, err, ErrDiagnostics)
	assert.Contains(t, stderr.String(), "lib.cb")

	ctx, stdout, stderr = testContext(t)
	ctx = WithIncludePath(ctx, []string{lib})

	require.NoError(t, newBuild(path).Run(ctx))
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), "func twice(a int32) int32 {")
	assert.Equal(t, []string{lib}, includePathFrom(ctx))
}

func TestPrintDiagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printDiagnostics(&buf, lang.Diagnostics{
		{Position: lang.Position{File: "a.cb", Line: 3}, Message: "first"},
		{Position: lang.Position{File: "program.go", Line: 9}, Message: "second\n\thave (int32)"},
	})

	assert.Equal(t, "a.cb(3): first\nprogram.go(9): second\n\thave (int32)\n", buf.String())
}

func TestOutputFrom_Default(t *testing.T) {
	t.Parallel()

	out := outputFrom(context.Background())
	assert.Equal(t, os.Stdout, out.Stdout)
	assert.Equal(t, os.Stderr, out.Stderr)
}

// fakeRunner is a [host.Runner] returning a fixed result.
type fakeRunner struct {
	err      error
	programs []host.Program
	result   host.Result
}

func (f *fakeRunner) Run(_ context.Context, p host.Program) (host.Result, error) {
	f.programs = append(f.programs, p)

	return f.result, f.err
}

func TestExecute(t *testing.T) {
	t.Parallel()

	toolchain := errors.New("no go")

	tests := []struct {
		name   string
		runner fakeRunner
		want   error
		arena  bool
		stderr string
	}{
		{name: "success"},
		{
			name:   "exit_code",
			runner: fakeRunner{result: host.Result{ExitCode: 1}},
			want:   ErrRunFailed,
		},
		{
			name:   "arena",
			runner: fakeRunner{result: host.Result{ExitCode: rt.ExitArena}},
			want:   ErrRunFailed,
			arena:  true,
		},
		{
			name: "diagnostics",
			runner: fakeRunner{result: host.Result{Diagnostics: lang.Diagnostics{
				{Position: lang.Position{File: "program.go", Line: 5}, Message: "undefined: melody"},
			}}},
			want:   ErrDiagnostics,
			stderr: "program.go(5): undefined: melody\n",
		},
		{
			name:   "toolchain",
			runner: fakeRunner{err: toolchain},
			want:   toolchain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, _, stderr := testContext(t)

			err := execute(ctx, &tt.runner, "main.cb", "package main\n")
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.want)
			}

			assert.Equal(t, tt.arena, errors.Is(err, rt.ErrArenaExhausted))
			assert.Equal(t, tt.stderr, stderr.String())
			require.Len(t, tt.runner.programs, 1)
			assert.Equal(t, "main.cb", tt.runner.programs[0].Name)
		})
	}
}

func TestRun_Compiles(t *testing.T) {
	t.Parallel()

	ctx, _, _ := testContext(t)

	var r fakeRunner

	c := &Run{Fold: true, Source: writeSource(t, "main.cb", mainSource)}
	require.NoError(t, c.run(ctx, &r))

	require.Len(t, r.programs, 1)
	assert.True(t, r.programs[0].HasEntry())
	assert.Contains(t, r.programs[0].Source, "x := int32(3)")
}

func TestWatch_Handler(t *testing.T) {
	t.Parallel()

	ctx, _, stderr := testContext(t)

	path := writeSource(t, "main.cb", mainSource)
	r := fakeRunner{result: host.Result{ExitCode: rt.ExitArena}}

	w := &Watch{Source: path}
	err := w.handler(&r)(ctx, watch.Job{Path: path, Trigger: path})
	require.ErrorIs(t, err, rt.ErrArenaExhausted)

	require.NoError(t, os.WriteFile(path, []byte("main :: () {\n\t<< 1;\n}\n"), 0o600))

	err = w.handler(&r)(ctx, watch.Job{Path: path, Trigger: path})
	require.ErrorIs(t, err, ErrDiagnostics)
	assert.Contains(t, stderr.String(), "'<<' can only be used inside methods returning 'seq'.")
	assert.Len(t, r.programs, 1)
}

func TestError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := ErrWriteOutput.With().Wrap(cause)

	assert.Equal(t, "write output file: disk full", err.Error())
	require.ErrorIs(t, err, ErrWriteOutput)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrWriteConfig)
}
