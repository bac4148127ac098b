package codegen

import (
	"strconv"
	"strings"

	"github.com/ardnew/cflat/lang"
)

type operand struct {
	text      string
	composite bool
}

// wrapped returns the operand text, parenthesized when it is the result of
// an operator.
func (o operand) wrapped() string {
	if o.composite {
		return "(" + o.text + ")"
	}

	return o.text
}

// expression rebuilds infix source from the linearized children of an
// Expression node. For each operator the first value popped is the right
// operand.
func (g *generator) expression(n *lang.Node) string {
	if n.Kind != lang.NodeExpression {
		return g.operand(n)
	}

	if g.opts.fold {
		if v, ok := g.fold(n); ok {
			return v
		}
	}

	var stack []operand

	pop := func() operand {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		return top
	}

	for _, c := range n.Children {
		if c.Kind != lang.NodeOperator {
			stack = append(stack, operand{text: g.operand(c)})

			continue
		}

		op := c.Name()

		switch len(stack) {
		case 0:
			stack = append(stack, operand{text: op})
		case 1:
			right := pop()
			stack = append(stack, operand{text: op + right.wrapped(), composite: true})
		default:
			right, left := pop(), pop()
			stack = append(stack, operand{
				text:      left.wrapped() + " " + op + " " + right.wrapped(),
				composite: true,
			})
		}
	}

	if len(stack) == 1 {
		return stack[0].text
	}

	parts := make([]string, 0, len(stack))
	for len(stack) > 0 {
		parts = append(parts, pop().text)
	}

	return strings.Join(parts, " ")
}

func (g *generator) operand(n *lang.Node) string {
	switch n.Kind {
	case lang.NodeExpression:
		return g.expression(n)

	case lang.NodeConstant:
		return constant(n)

	case lang.NodeLocalDereference:
		return g.dereference(n)

	case lang.NodeMethodCall:
		return g.call(n)

	case lang.NodeNoteSequence:
		notes := make([]string, len(n.Children))
		for i, note := range n.Children {
			pitch := "0"
			if len(note.Children) > 0 {
				pitch = g.expression(note.Children[0])
			}

			notes[i] = "N(" + pitch + ", " + formatDuration(note.Duration) + ")"
		}

		return "Notes(" + strings.Join(notes, ", ") + ")"

	case lang.NodeNoteSequenceVariation:
		items := make([]string, len(n.Children))
		for i, c := range n.Children {
			items[i] = g.expression(c)
		}

		return "Notes(" + strings.Join(items, ", ") + ")"

	case lang.NodePlaceholder:
		return g.placeholder(n)

	default:
		return n.Name()
	}
}

// integral reports whether n is built only from integer constants and
// arithmetic operators. Go gives such expressions the type int, so locals
// they initialize are converted to the type of i32.
func integral(n *lang.Node) bool {
	switch n.Kind {
	case lang.NodeConstant:
		return n.Constant == lang.ConstInt

	case lang.NodeExpression:
		for _, c := range n.Children {
			if c.Kind == lang.NodeOperator {
				switch c.Name() {
				case "+", "-", "*", "/":
					continue
				}

				return false
			}

			if !integral(c) {
				return false
			}
		}

		return len(n.Children) > 0

	default:
		return false
	}
}

func constant(n *lang.Node) string {
	switch n.Constant {
	case lang.ConstFloat:
		return "float32(" + n.Token.Text() + ")"
	case lang.ConstString:
		return `"` + n.Token.Text() + `"`
	default:
		return n.Token.Text()
	}
}

// placeholder emits the note of the variation source at the position of the
// enclosing variation entry, with the pitch and duration overrides applied.
func (g *generator) placeholder(n *lang.Node) string {
	entry, parent := n, n.Parent()
	for parent != nil && parent.Kind == lang.NodeExpression {
		entry, parent = parent, parent.Parent()
	}

	if parent == nil || parent.Kind != lang.NodeNoteSequenceVariation {
		g.errorf(n, "The '?' placeholder can only be used when creating variations of existing note sequences.")

		return "Note{}"
	}

	index := 0

	for i, c := range parent.Children {
		if c == entry {
			index = i

			break
		}
	}

	src := parent.Name()
	if goName, ok := g.scope.names[src]; ok {
		src = goName
	} else {
		src = sanitize(src)
	}

	out := src + ".At(" + strconv.Itoa(index) + ")"

	if len(n.Children) > 0 {
		out = "WithPitch(" + out + ", " + g.expression(n.Children[0]) + ")"
	}

	if n.Duration >= 0 {
		out = "WithDuration(" + out + ", " + formatDuration(n.Duration) + ")"
	}

	return out
}
