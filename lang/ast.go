package lang

//go:generate go tool stringer --linecomment --type NodeKind,ConstantKind --output ast_string.go

import (
	"fmt"
	"iter"
)

// NodeKind is the closed set of AST node variants.
type NodeKind uint8

const (
	NodeAst                   NodeKind = iota // Ast
	NodeStruct                                // Struct
	NodeField                                 // Field
	NodeMethod                                // Method
	NodeMethodCall                            // MethodCall
	NodeLocalAssignment                       // LocalAssignment
	NodeLocalDeclaration                      // LocalDeclaration
	NodeLocalDereference                      // LocalDereference
	NodeExpression                            // Expression
	NodeOperator                              // Operator
	NodeConstant                              // Constant
	NodeInclude                               // Include
	NodeReturn                                // Return
	NodeNote                                  // Note
	NodeNoteSequence                          // NoteSequence
	NodeNoteSequenceVariation                 // NoteSequenceVariation
	NodePlaceholder                           // Placeholder
)

// ConstantKind is the literal type of a [NodeConstant].
type ConstantKind uint8

const (
	ConstInt    ConstantKind = iota // int
	ConstFloat                      // float
	ConstString                     // string
	ConstScale                      // scale
)

// Param is one method parameter.
type Param struct {
	Type Token
	Name Token
}

// Node is an AST node. Which payload fields are meaningful depends on Kind:
//
//	Ast                    File
//	Struct                 Token (name)
//	Field                  Token (name), Type
//	Method                 Token (name), Params, Type (return, may be zero)
//	MethodCall             Token (name or "<<"); children are arguments
//	LocalAssignment        Token (local name); child is the Expression
//	LocalDereference       Path
//	Expression             children in linearized operand/operator order
//	Operator               Token
//	Constant               Token, Constant
//	Include                Token (quoted name), File (resolved path)
//	Return                 optional Expression child
//	Note                   Duration; child is the pitch Expression
//	NoteSequence           Note children
//	NoteSequenceVariation  Token (source identifier); Expression children
//	Placeholder            Token, Duration (-1 when absent); optional
//	                       pitch Expression child
//
// Parent and root are lookup-only links. Children are only attached through
// [Node.Add], so no node is ever listed by two parents.
type Node struct {
	parent   *Node
	root     *Node
	Children []*Node
	Params   []Param
	Path     []Token
	File     string
	Token    Token
	Type     Token
	Duration float32
	Kind     NodeKind
	Constant ConstantKind
}

// NewNode returns a detached node of kind k started by tok.
func NewNode(k NodeKind, tok Token) *Node {
	return &Node{Kind: k, Token: tok}
}

// Add appends child to n, linking its parent and root. It panics if child
// already has a parent.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		panic(fmt.Sprintf(
			"lang: %s node already has a %s parent", child.Kind, child.parent.Kind,
		))
	}

	if child == n || child == n.Root() {
		panic("lang: node cannot be its own descendant")
	}

	child.parent = n
	child.reroot(n.Root())
	n.Children = append(n.Children, child)
}

// Adopt moves every child of from to n. from is left without children.
func (n *Node) Adopt(from *Node) {
	children := from.Children
	from.Children = nil

	for _, c := range children {
		c.parent = nil
		n.Add(c)
	}
}

func (n *Node) reroot(root *Node) {
	n.root = root

	for _, c := range n.Children {
		c.reroot(root)
	}
}

// Parent returns the node n was added to, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the top of the tree containing n.
func (n *Node) Root() *Node {
	if n.root != nil {
		return n.root
	}

	return n
}

// FileName returns the file n was parsed from: the File of the nearest
// enclosing Include or Ast node.
func (n *Node) FileName() string {
	for p := n; p != nil; p = p.parent {
		if p.File != "" {
			return p.File
		}
	}

	return n.Token.File()
}

// Line returns the line of the token that started n.
func (n *Node) Line() int { return n.Token.Line }

// Position returns the file and line of n for diagnostics.
func (n *Node) Position() Position {
	return Position{File: n.FileName(), Line: n.Line()}
}

// Name returns the text of the token that started n.
func (n *Node) Name() string { return n.Token.Text() }

// Walk visits n and its descendants in pre-order. Children of a node are
// skipped when fn returns false for it.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}

	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// All returns an iterator over n and its descendants in pre-order.
func (n *Node) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.all(yield)
	}
}

func (n *Node) all(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}

	for _, c := range n.Children {
		if !c.all(yield) {
			return false
		}
	}

	return true
}

// Method returns the top-level method named name, searching included
// declarations too.
func (n *Node) Method(name string) (*Node, bool) {
	for c := range n.Root().All() {
		if c.Kind == NodeMethod && c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

func (n *Node) String() string {
	switch n.Kind {
	case NodeAst, NodeReturn, NodeExpression, NodeNoteSequence:
		return n.Kind.String()
	case NodeNote:
		return fmt.Sprintf("%s %g", n.Kind, n.Duration)
	case NodeLocalDereference:
		s := ""
		for i, t := range n.Path {
			if i > 0 {
				s += "."
			}

			s += t.Text()
		}

		return n.Kind.String() + " " + s
	case NodeConstant:
		return fmt.Sprintf("%s %s %s", n.Kind, n.Constant, n.Token.Text())
	case NodePlaceholder:
		if n.Duration >= 0 {
			return fmt.Sprintf("%s %g", n.Kind, n.Duration)
		}

		return n.Kind.String()
	default:
		return n.Kind.String() + " " + n.Token.Text()
	}
}
