package lang

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, text := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	}
}

func TestInclude_Splice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.cb": "include \"lib\";\nmain :: () { f(); }\n",
		"lib.cb":  "\n\nf :: () { }\n",
	})

	root, diags, err := ParseFile(context.Background(), filepath.Join(dir, "main.cb"))
	require.NoError(t, err)
	require.Empty(t, diags, diags.String())
	require.Len(t, root.Children, 2)

	inc := root.Children[0]
	assert.Equal(t, NodeInclude, inc.Kind)
	assert.Equal(t, "lib", inc.Name())
	assert.Equal(t, filepath.Join(dir, "lib.cb"), inc.File)

	f, ok := root.Method("f")
	require.True(t, ok)
	assert.Same(t, inc, f.Parent())
	assert.Same(t, root, f.Root())
	assert.Equal(t, Position{File: filepath.Join(dir, "lib.cb"), Line: 3}, f.Position())

	main, ok := root.Method("main")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "main.cb"), main.FileName())
}

func TestInclude_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.cb": "include \"nope\";\nmain :: () { }\n",
	})

	root, diags, err := ParseFile(context.Background(), filepath.Join(dir, "main.cb"))
	require.NoError(t, err)
	require.Len(t, diags, 1)

	want := "Could not include: '" + filepath.Join(dir, "nope.cb") + "'. File not found."
	assert.Equal(t, want, diags[0].Message)
	assert.Equal(t, 1, diags[0].Line)
	assert.Empty(t, find(root, NodeInclude))

	_, ok := root.Method("main")
	assert.True(t, ok)
}

func TestInclude_Cycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cb": "include \"b\";\na :: () { }\n",
		"b.cb": "include \"a\";\nb :: () { }\n",
	})

	root, diags, err := ParseFile(context.Background(), filepath.Join(dir, "a.cb"))
	require.NoError(t, err)
	require.Len(t, diags, 1, diags.String())

	assert.Equal(t, "Include cycle: '"+filepath.Join(dir, "a.cb")+"'.", diags[0].Message)
	assert.Equal(t, filepath.Join(dir, "b.cb"), diags[0].File)

	_, ok := root.Method("b")
	assert.True(t, ok)
}

func TestInclude_NestedDiagnostics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.cb": "include \"bad\";\n",
		"bad.cb":  "\nf () { }\n",
	})

	_, diags, err := ParseFile(context.Background(), filepath.Join(dir, "main.cb"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, filepath.Join(dir, "bad.cb")+"(2): '::' expected.", diags[0].String())
}

func TestInclude_SearchPath(t *testing.T) {
	dir, lib := t.TempDir(), t.TempDir()
	writeFiles(t, dir, map[string]string{
		"main.cb": "include \"shared\";\ninclude \"extra\";\n",
	})
	writeFiles(t, lib, map[string]string{"shared.cb": "s :: () { }\n"})

	other := t.TempDir()
	writeFiles(t, other, map[string]string{"extra.cb": "e :: () { }\n"})

	t.Setenv("CFLAT_PATH", lib+string(os.PathListSeparator)+filepath.Join(lib, "missing"))

	path := SearchPath(other)
	assert.Contains(t, path, other)
	assert.Contains(t, path, lib)
	assert.NotContains(t, path, filepath.Join(lib, "missing"))
	assert.Less(t, slices.Index(path, other), slices.Index(path, lib))

	root, diags, err := ParseFile(
		context.Background(),
		filepath.Join(dir, "main.cb"),
		WithIncludePath(other),
	)
	require.NoError(t, err)
	require.Empty(t, diags, diags.String())

	_, ok := root.Method("s")
	assert.True(t, ok)

	_, ok = root.Method("e")
	assert.True(t, ok)
}
