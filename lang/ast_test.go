package lang

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Add(t *testing.T) {
	t.Parallel()

	root := &Node{Kind: NodeAst, File: "x.cb"}
	method := NewNode(NodeMethod, Token{})
	stmt := NewNode(NodeReturn, Token{})
	method.Add(stmt)

	assert.Same(t, method, stmt.Root())

	root.Add(method)
	assert.Same(t, root, method.Parent())
	assert.Same(t, root, stmt.Root(), "subtree is rerooted")
	assert.Equal(t, "x.cb", stmt.FileName())

	assert.PanicsWithValue(t, "lang: Return node already has a Method parent", func() {
		root.Add(stmt)
	})
	assert.Panics(t, func() { method.Add(method) })
	assert.Panics(t, func() { stmt.Add(root) })
}

func TestNode_Adopt(t *testing.T) {
	t.Parallel()

	from := &Node{Kind: NodeAst}
	a, b := NewNode(NodeMethod, Token{}), NewNode(NodeStruct, Token{})
	from.Add(a)
	from.Add(b)

	root := &Node{Kind: NodeAst}
	inc := NewNode(NodeInclude, Token{})
	root.Add(inc)
	inc.Adopt(from)

	assert.Empty(t, from.Children)
	require.Len(t, inc.Children, 2)
	assert.Same(t, inc, a.Parent())
	assert.Same(t, root, b.Root())
}

func TestNode_Walk(t *testing.T) {
	t.Parallel()

	root := mustParse(t, `struct S { i32 x; } f :: () { return 1 + 2; }`)

	var kinds []NodeKind

	root.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)

		return n.Kind != NodeStruct
	})

	assert.Equal(t, []NodeKind{
		NodeAst, NodeStruct, NodeMethod, NodeReturn,
		NodeExpression, NodeConstant, NodeConstant, NodeOperator,
	}, kinds)

	count := 0
	for range root.All() {
		count++
		if count == 3 {
			break
		}
	}

	assert.Equal(t, 3, count)
}

func TestNode_Format(t *testing.T) {
	t.Parallel()

	root := mustParse(t, `f :: (i32 a) -> seq { x := a.b; << ♩root; }`)

	var buf bytes.Buffer
	require.NoError(t, root.Format(context.Background(), &buf, 2))

	want := `Ast test.cb
  Method f (i32 a) -> seq
    LocalAssignment x
      Expression
        LocalDereference a.b
    Expression
      MethodCall <<
        Expression
          NoteSequence
            Note 0.25
              Expression
                Constant int 0
`
	assert.Equal(t, want, buf.String())
}

func TestNode_FormatJSON(t *testing.T) {
	t.Parallel()

	root := mustParse(t, `struct S { i32 x; }`)

	var buf bytes.Buffer
	require.NoError(t, root.FormatJSON(context.Background(), &buf, 0))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "Ast", got["kind"])

	children, ok := got["children"].([]any)
	require.True(t, ok)
	require.Len(t, children, 1)

	st, ok := children[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Struct", st["kind"])
	assert.Equal(t, "S", st["name"])
}

func TestNode_FormatYAML(t *testing.T) {
	t.Parallel()

	root := mustParse(t, `f :: () { x := 3rd; }`)

	var buf bytes.Buffer
	require.NoError(t, root.FormatYAML(context.Background(), &buf, 2))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Ast", got["kind"])
	assert.Contains(t, buf.String(), "value: \"4\"")
}

func TestKindNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "keyword", KindKeyword.String())
	assert.Equal(t, "notehead", KindNoteHead.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
	assert.Equal(t, "NoteSequenceVariation", NodeNoteSequenceVariation.String())
	assert.Equal(t, "NodeKind(99)", NodeKind(99).String())
	assert.Equal(t, "scale", ConstScale.String())
}
