package host

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
)

func TestClean(t *testing.T) {
	t.Parallel()

	output := "# github.com/ardnew/cflat\n" +
		"/tmp/ws/abc/program.go:12:9: undefined: foo\n" +
		"./program.go:14:2: declared and not used: x__v\n" +
		"./program.go:20:14: cannot use __seq (variable of type *rt.Seq) as int32 value in return statement\n" +
		"\thave (int32)\n" +
		"program.go:31: too many arguments in call to cflatMain\n" +
		"note: module requires go >= 1.23\n"

	got := Clean("/tmp/ws/abc", []byte(output))

	want := lang.Diagnostics{
		{Position: lang.Position{File: "program.go", Line: 12}, Message: "undefined: foo"},
		{Position: lang.Position{File: "program.go", Line: 14}, Message: "declared and not used: x'"},
		{
			Position: lang.Position{File: "program.go", Line: 20},
			Message:  "cannot use seq (variable of type *Seq) as int32 value in return statement\n\thave (int32)",
		},
		{Position: lang.Position{File: "program.go", Line: 31}, Message: "too many arguments in call to main"},
	}
	assert.Equal(t, want, got)
}

func TestClean_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Clean("/tmp", nil))
	assert.Empty(t, Clean("/tmp", []byte("go: cannot find main module\n")))
}

func TestProgram_HasEntry(t *testing.T) {
	t.Parallel()

	assert.True(t, Program{Source: "package main\n\nfunc entry() {\n}\n"}.HasEntry())
	assert.False(t, Program{Source: "package main\n\nfunc cflatMain() {\n}\n"}.HasEntry())
}

func TestWriteWorkspace(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, writeWorkspace(dir, "package main\n"))

	mod, err := os.ReadFile(filepath.Join(dir, GoModFile))
	require.NoError(t, err)
	assert.Equal(t, "module github.com/ardnew/cflat\n\ngo 1.23\n", string(mod))

	main, err := os.ReadFile(filepath.Join(dir, MainFile))
	require.NoError(t, err)
	assert.Contains(t, string(main), "os.Exit(rt.Run(entry))")

	prog, err := os.ReadFile(filepath.Join(dir, ProgramFile))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(prog))

	assert.FileExists(t, filepath.Join(dir, "rt", "seq.go"))
	assert.FileExists(t, filepath.Join(dir, "rt", "run.go"))
	assert.NoFileExists(t, filepath.Join(dir, "rt", "embed.go"))
}

// fakeRunner returns a runner whose builds write a shell script printing
// "hi" and exiting with code.
func fakeRunner(t *testing.T, code string, opts ...Option) (*GoRunner, *int) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake builds are shell scripts")
	}

	r, err := NewGoRunner(append([]Option{WithWorkDir(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	builds := 0
	r.build = func(_ context.Context, _, bin string) ([]byte, error) {
		builds++

		return nil, os.WriteFile(bin, []byte("#!/bin/sh\necho hi\nexit "+code+"\n"), 0o700)
	}

	return r, &builds
}

const entrySource = "package main\n\nfunc entry() {\n}\n"

func TestGoRunner_Cache(t *testing.T) {
	t.Parallel()

	r, builds := fakeRunner(t, "0", WithCacheSize(1))
	ctx := context.Background()

	first := Program{Name: "a.cb", Source: entrySource}
	second := Program{Name: "b.cb", Source: entrySource + "\n// b\n"}

	res, err := r.Run(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Stdout)
	assert.False(t, res.Cached)
	assert.False(t, res.Failed())

	res, err = r.Run(ctx, first)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, *builds)

	_, err = r.Run(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, *builds)
	assert.NoDirExists(t, filepath.Join(r.root, Key(first.Source)))
	assert.DirExists(t, filepath.Join(r.root, Key(second.Source)))

	res, err = r.Run(ctx, first)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 3, *builds)
}

func TestGoRunner_ExitCode(t *testing.T) {
	t.Parallel()

	r, _ := fakeRunner(t, "3")

	res, err := r.Run(context.Background(), Program{Source: entrySource})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.ArenaExhausted())
	assert.True(t, res.Failed())
}

func TestGoRunner_NoEntry(t *testing.T) {
	t.Parallel()

	r, builds := fakeRunner(t, "0")

	_, err := r.Run(context.Background(), Program{Name: "x.cb", Source: "package main\n"})
	require.ErrorIs(t, err, ErrNoEntry)
	assert.Zero(t, *builds)
}

func TestGoRunner_BuildFailure(t *testing.T) {
	t.Parallel()

	r, err := NewGoRunner(WithWorkDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	output := []byte("./program.go:5:2: undefined: melody\n")
	r.build = func(context.Context, string, string) ([]byte, error) {
		return output, errors.New("exit status 1")
	}

	res, err := r.Run(context.Background(), Program{Source: entrySource})
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "program.go(5): undefined: melody", res.Diagnostics[0].String())
	assert.True(t, res.Failed())
	assert.NoDirExists(t, filepath.Join(r.root, Key(entrySource)))

	output = []byte("go: go.mod requires go >= 9.0\n")

	_, err = r.Run(context.Background(), Program{Source: entrySource})
	require.ErrorIs(t, err, ErrToolchain)
}

func TestGoRunner_Close(t *testing.T) {
	t.Parallel()

	r, err := NewGoRunner()
	require.NoError(t, err)
	assert.DirExists(t, r.root)

	require.NoError(t, r.Close())
	assert.NoDirExists(t, r.root)
}

func TestGoRunner_Toolchain(t *testing.T) {
	if testing.Short() {
		t.Skip("builds with the go command")
	}

	if _, err := exec.LookPath(DefaultGoCommand); err != nil {
		t.Skip("go command not available")
	}

	t.Parallel()

	ctx := context.Background()

	root, diags, err := lang.ParseSource(ctx, &lang.Source{
		Name: "main.cb",
		Text: []byte("main :: () -> i32 {\n\tx := 1 + 2;\n\treturn x * 4;\n}\n"),
	})
	require.NoError(t, err)
	require.Empty(t, diags)

	src, diags := codegen.Generate(ctx, root)
	require.Empty(t, diags)

	r, err := NewGoRunner(WithWorkDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	res, err := r.Run(ctx, Program{Name: "main.cb", Source: src})
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics, res.Diagnostics.String())
	assert.Equal(t, "12\n", res.Stdout)
	assert.Zero(t, res.ExitCode)

	res, err = r.Run(ctx, Program{Name: "main.cb", Source: src})
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestGoRunner_ToolchainTyping(t *testing.T) {
	if testing.Short() {
		t.Skip("builds with the go command")
	}

	if _, err := exec.LookPath(DefaultGoCommand); err != nil {
		t.Skip("go command not available")
	}

	t.Parallel()

	ctx := context.Background()

	root, diags, err := lang.ParseSource(ctx, &lang.Source{
		Name: "main.cb",
		Text: []byte(`f :: (i32 a) -> i32 { return a + 1; }
main :: () {
	x := 2;
	print(f(x));
	print("a\tb");
	print(♩root ♪3rd);
}
`),
	})
	require.NoError(t, err)
	require.Empty(t, diags)

	src, diags := codegen.Generate(ctx, root)
	require.Empty(t, diags)

	r, err := NewGoRunner(WithWorkDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	res, err := r.Run(ctx, Program{Name: "main.cb", Source: src})
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics, res.Diagnostics.String())
	assert.Equal(t,
		"3\na\tb\n{ pitch = 0, duration = 0.25 }\n{ pitch = 4, duration = 0.125 }\n",
		res.Stdout)
}
