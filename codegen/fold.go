package codegen

import (
	"log/slog"
	"strconv"

	"github.com/expr-lang/expr"

	"github.com/ardnew/cflat/lang"
)

// fold evaluates an expression made only of integer constants and the
// operators + - *. It reports false for anything else, including results
// that overflow int32.
func (g *generator) fold(n *lang.Node) (string, bool) {
	operators := 0

	for _, c := range n.Children {
		switch {
		case c.Kind == lang.NodeConstant && c.Constant == lang.ConstInt:
		case c.Kind == lang.NodeOperator && (c.Name() == "+" || c.Name() == "-" || c.Name() == "*"):
			operators++
		default:
			return "", false
		}
	}

	if operators == 0 {
		return "", false
	}

	g.opts.fold = false
	src := g.expression(n)
	g.opts.fold = true

	program, err := expr.Compile(src, expr.AsInt64())
	if err != nil {
		g.opts.logger.DebugContext(g.ctx, "fold compile failed",
			slog.String("expr", src), slog.String("error", err.Error()))

		return "", false
	}

	out, err := expr.Run(program, nil)
	if err != nil {
		return "", false
	}

	v, ok := out.(int64)
	if !ok || int64(int32(v)) != v {
		return "", false
	}

	return strconv.FormatInt(v, 10), true
}
