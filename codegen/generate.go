package codegen

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/cflat/lang"
)

// Header is the first line of every generated file.
const Header = "// Code generated by cflat. DO NOT EDIT."

type generator struct {
	ctx     context.Context
	opts    options
	diags   lang.Diagnostics
	buf     bytes.Buffer
	methods map[string]string
	types   map[string]string
	taken   map[string]bool
	scope   *scope
	depth   int
	id      int
}

// Generate translates the tree rooted at root into the source of a Go file.
// Problems that only surface during translation are returned as
// diagnostics; the source is returned regardless.
func Generate(ctx context.Context, root *lang.Node, opts ...Option) (string, lang.Diagnostics) {
	g := &generator{
		ctx:     ctx,
		opts:    makeOptions(opts...),
		methods: map[string]string{},
		types:   map[string]string{},
		taken:   map[string]bool{},
	}

	g.declare(root)
	g.file(root)

	src := g.buf.Bytes()

	if g.opts.format {
		formatted, err := format.Source(src)
		if err != nil {
			g.opts.logger.WarnContext(ctx, "generated source not formatted",
				slog.String("error", err.Error()),
			)
		} else {
			src = formatted
		}
	}

	g.opts.logger.TraceContext(ctx, "generated",
		slog.String("file", root.FileName()),
		slog.Int("methods", len(g.methods)),
		slog.Int("bytes", len(src)),
		slog.Int("diagnostics", len(g.diags)),
	)

	return string(src), g.diags
}

// nextID returns a number unique within one generated file.
func (g *generator) nextID() int {
	g.id++

	return g.id
}

// unique returns name, or name with a numeric suffix if name is reserved
// or already taken.
func (g *generator) unique(name string) string {
	name = sanitize(name)

	for reserved(name) || g.taken[name] {
		name = fmt.Sprintf("%s_%d", strings.TrimRight(name, "_"), g.nextID())
	}

	return name
}

// declare names every struct and method up front so they can be used
// before their declaration.
func (g *generator) declare(root *lang.Node) {
	for n := range root.All() {
		switch n.Kind {
		case lang.NodeStruct:
			if _, ok := g.types[n.Name()]; !ok {
				g.types[n.Name()] = g.unique(n.Name())
				g.taken[g.types[n.Name()]] = true
			}

		case lang.NodeMethod:
			if _, ok := g.methods[n.Name()]; ok {
				continue
			}

			name := MainFunc
			if n.Name() != "main" {
				name = g.unique(n.Name())
			}

			g.methods[n.Name()] = name
			g.taken[name] = true
		}
	}
}

func (g *generator) errorf(n *lang.Node, format string, args ...any) {
	g.diags.Add(n.Position(), format, args...)
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *generator) line(format string, args ...any) {
	g.buf.WriteString(strings.Repeat("\t", g.depth))
	g.printf(format, args...)
	g.buf.WriteByte('\n')
}

func (g *generator) file(root *lang.Node) {
	g.line("%s", Header)
	g.line("")
	g.line("package %s", g.opts.pkg)
	g.line("")
	g.line("import . %s", strconv.Quote(g.opts.runtime))
	g.line("")
	g.line("var _ = NewSeq")

	g.declarations(root)

	if main, ok := root.Method("main"); ok {
		g.line("")
		g.line("func %s() {", EntryFunc)

		if main.Type.IsZero() {
			g.line("\t%s()", MainFunc)
		} else {
			g.line("\tPrint(%s())", MainFunc)
		}

		g.line("}")
	}
}

func (g *generator) declarations(n *lang.Node) {
	for _, c := range n.Children {
		switch c.Kind {
		case lang.NodeInclude:
			g.declarations(c)
		case lang.NodeStruct:
			g.structDecl(c)
		case lang.NodeMethod:
			g.method(c)
		}
	}
}

func (g *generator) typeName(t lang.Token) string {
	if t.IsZero() {
		return ""
	}

	if goType, ok := builtinTypes[t.Text()]; ok {
		return goType
	}

	if goType, ok := g.types[t.Text()]; ok {
		return goType
	}

	return sanitize(t.Text())
}

func (g *generator) structDecl(n *lang.Node) {
	g.line("")
	g.line("type %s struct {", g.types[n.Name()])

	for _, f := range n.Children {
		g.line("\t%s %s", fieldName(f.Name()), g.typeName(f.Type))
	}

	g.line("}")
}

// bind returns the Go name of a local, assigning one on first use.
func (g *generator) bind(name string) string {
	if goName, ok := g.scope.names[name]; ok {
		return goName
	}

	goName := g.unique(name)
	g.scope.names[name] = goName

	return goName
}

func (g *generator) method(n *lang.Node) {
	ret := g.typeName(n.Type)
	g.scope = newScope(n.Type.Equals("seq"))

	defer func() { g.scope = nil }()

	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		name := g.bind(p.Name.Text())
		g.scope.declared[name] = true
		params[i] = name + " " + g.typeName(p.Type)
	}

	if ret != "" {
		ret = " " + ret
	}

	g.line("")
	g.line("func %s(%s)%s {", g.methods[n.Name()], strings.Join(params, ", "), ret)
	g.depth++

	if g.scope.seq {
		g.line("%s := NewSeq()", seqVar)
	}

	for _, stmt := range n.Children {
		g.statement(stmt)
	}

	if g.scope.seq {
		g.line("return %s", seqVar)
	}

	g.depth--
	g.line("}")
}

func (g *generator) statement(n *lang.Node) {
	switch n.Kind {
	case lang.NodeLocalAssignment:
		g.assign(n)

	case lang.NodeReturn:
		switch {
		case len(n.Children) > 0:
			g.line("return %s", g.expression(n.Children[0]))
		case g.scope.seq:
			g.line("return %s", seqVar)
		default:
			g.line("return")
		}

	case lang.NodeExpression:
		if len(n.Children) == 1 && n.Children[0].Kind == lang.NodeMethodCall {
			call := n.Children[0]
			if call.Name() == "<<" {
				g.yieldStatement(call)

				return
			}

			g.line("%s", g.call(call))

			return
		}

		g.line("_ = %s", g.expression(n))
	}
}

func (g *generator) assign(n *lang.Node) {
	name := g.bind(n.Name())

	var value string
	if len(n.Children) > 0 {
		value = g.expression(n.Children[0])
	}

	if g.scope.declared[name] {
		g.line("%s = %s", name, value)

		return
	}

	if len(n.Children) > 0 && integral(n.Children[0]) {
		value = builtinTypes["i32"] + "(" + value + ")"
	}

	g.scope.declared[name] = true
	g.line("%s := %s", name, value)
	g.line("_ = %s", name)
}

// yieldStatement emits "<< stmt" at statement level.
func (g *generator) yieldStatement(call *lang.Node) {
	if len(call.Children) == 0 {
		return
	}

	arg := call.Children[0]

	var value string

	switch arg.Kind {
	case lang.NodeLocalAssignment:
		g.assign(arg)
		value = g.bind(arg.Name())

	case lang.NodeExpression:
		value = g.expression(arg)

	default:
		g.errorf(call, "Only expressions and local declarations can be yielded.")

		return
	}

	if !g.scope.seq {
		g.errorf(call, "'<<' can only be used inside methods returning 'seq'.")
		g.line("_ = %s", value)

		return
	}

	g.line("%s.Append(%s)", seqVar, value)
}

// yield emits "<< expr" inside an expression.
func (g *generator) yield(call *lang.Node) string {
	if len(call.Children) == 0 || call.Children[0].Kind != lang.NodeExpression {
		g.errorf(call, "Only expressions can be yielded inside an expression.")

		return seqVar
	}

	value := g.expression(call.Children[0])

	if !g.scope.seq {
		g.errorf(call, "'<<' can only be used inside methods returning 'seq'.")

		return value
	}

	return seqVar + ".Append(" + value + ")"
}

func (g *generator) call(n *lang.Node) string {
	if n.Name() == "<<" {
		return g.yield(n)
	}

	args := make([]string, len(n.Children))
	for i, c := range n.Children {
		args[i] = g.expression(c)
	}

	return g.callee(n.Name(), len(args)) + "(" + strings.Join(args, ", ") + ")"
}

func (g *generator) callee(name string, arity int) string {
	switch name {
	case "using":
		return "Using"
	case "print":
		return "Print"
	case "signature":
		return "Signature"
	case "tempo":
		if arity == 0 {
			return "Tempo"
		}

		return "SetTempo"
	}

	if goName, ok := g.methods[name]; ok {
		return goName
	}

	if goType, ok := g.types[name]; ok {
		return goType
	}

	return sanitize(name)
}

func (g *generator) dereference(n *lang.Node) string {
	if len(n.Path) == 0 {
		return ""
	}

	head := n.Path[0].Text()

	switch goName, ok := g.scope.names[head]; {
	case ok:
		head = goName
	case g.methods[head] != "":
		head = g.methods[head]
	default:
		head = sanitize(head)
	}

	parts := []string{head}
	for _, t := range n.Path[1:] {
		parts = append(parts, fieldName(t.Text()))
	}

	return strings.Join(parts, ".")
}

func formatDuration(d float32) string {
	return strconv.FormatFloat(float64(d), 'g', -1, 32)
}
