package lang

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// match is the outcome of trying one production.
type match uint8

const (
	// noMatch means the production does not apply. Nothing was consumed.
	noMatch match = iota
	matched
	// failed means the production applied but was malformed. A diagnostic
	// has been recorded.
	failed
)

type state uint8

const (
	stateRoot state = iota
	stateStruct
	stateMethod
)

//nolint:gochecknoglobals
var intervals = map[string]int{
	"root": 0, "2nd": 2, "3rd": 4, "4th": 5, "5th": 7, "6th": 9, "7th": 11,
	"octave": 12, "8th": 14, "9th": 16, "10th": 17, "11th": 19, "12th": 21,
	"13th": 23, "14th": 24,
}

// Interval returns the semitone offset of an interval keyword.
func Interval(keyword string) (int, bool) {
	n, ok := intervals[keyword]

	return n, ok
}

// ScaleName returns the runtime name of a scale keyword ("cmaj" is "CMaj").
func ScaleName(keyword string) (string, bool) {
	if len(keyword) != 4 || !strings.ContainsRune("cdefgab", rune(keyword[0])) {
		return "", false
	}

	switch keyword[1:] {
	case "maj", "min":
		return strings.ToUpper(keyword[:2]) + keyword[2:], true
	default:
		return "", false
	}
}

// Precedence returns the binding strength of a binary operator, or -1.
func Precedence(op string) int {
	switch op {
	case "+", "-":
		return 1
	case "*", "/":
		return 2
	case "==", "!=":
		return 3
	case "&", "&&", "|", "||":
		return 4
	default:
		return -1
	}
}

type parser struct {
	ctx   context.Context
	opts  *options
	root  *Node
	scope *Node
	in    Stream
	diags Diagnostics
	last  Token
	pos   int
	state state
}

// Parse builds the AST of in. The tree is returned even when diagnostics
// were recorded; parsing is successful when the diagnostics are empty.
func Parse(ctx context.Context, in Stream, opts ...Option) (*Node, Diagnostics) {
	return parse(ctx, in, makeOptions(opts...))
}

func parse(ctx context.Context, in Stream, o *options) (*Node, Diagnostics) {
	if o.pool == nil {
		o.pool = in.pool
	}

	p := &parser{
		ctx:  ctx,
		opts: o,
		in:   in,
		root: &Node{Kind: NodeAst, File: in.Name},
	}

	if abs, err := filepath.Abs(in.Name); err == nil && in.Name != "" {
		if !o.active[abs] {
			o.active[abs] = true
			defer delete(o.active, abs)
		}
	}

	p.run()

	o.logger.TraceContext(ctx, "parsed",
		slog.String("file", in.Name),
		slog.Int("tokens", in.Len()),
		slog.Int("declarations", len(p.root.Children)),
		slog.Int("diagnostics", len(p.diags)),
	)

	return p.root, p.diags
}

func (p *parser) run() {
	for !p.atEnd() {
		if err := p.ctx.Err(); err != nil {
			p.errorAt(p.peek(0), "Parsing canceled: %s.", err)

			return
		}

		start := p.pos

		switch p.state {
		case stateRoot:
			p.declaration(start)
		case stateStruct:
			p.structMember(start)
		case stateMethod:
			p.methodStatement(start)
		}
	}

	if p.state != stateRoot {
		p.errorf("'}' expected.")
	}
}

func (p *parser) atEnd() bool { return p.pos >= p.in.Len() }

func (p *parser) peek(k int) Token { return p.in.At(p.pos + k) }

func (p *parser) next() Token {
	t := p.in.At(p.pos)
	if p.pos < p.in.Len() {
		p.pos++
		p.last = t
	}

	return t
}

// errorf records a diagnostic at the line of the last consumed token.
func (p *parser) errorf(format string, args ...any) {
	at := p.last
	if at.IsZero() {
		at = p.peek(0)
	}

	p.errorAt(at, format, args...)
}

func (p *parser) errorAt(at Token, format string, args ...any) {
	p.diags.Add(Position{File: p.in.Name, Line: at.Line}, format, args...)
}

// declaration parses one top-level production.
func (p *parser) declaration(start int) {
	tok := p.peek(0)
	if tok.Kind == KindSemicolon {
		p.next()

		return
	}

	for _, production := range []func() (*Node, match){
		p.include, p.structHeader, p.methodHeader,
	} {
		n, m := production()

		switch m {
		case noMatch:
			continue
		case matched:
			p.root.Add(n)
		case failed:
			p.recoverDeclaration(start)
		}

		return
	}

	p.errorAt(tok, "Not sure what to do with '%s'.", tok.Text())
	p.recoverDeclaration(start)
}

// recoverDeclaration skips from start past the next top-level ';' or past
// the next balanced '{...}' block, whichever comes first.
func (p *parser) recoverDeclaration(start int) {
	p.pos = start
	p.state = stateRoot
	p.scope = nil

	depth := 0

	for !p.atEnd() {
		t := p.next()

		switch {
		case t.Is(KindOpenBracket, "{"):
			depth++
		case t.Is(KindCloseBracket, "}"):
			if depth--; depth <= 0 {
				return
			}
		case t.Kind == KindSemicolon && depth == 0:
			return
		}
	}
}

// recoverStatement rescans from start past the next ';' of the current
// body, stopping before the '}' that closes it.
func (p *parser) recoverStatement(start int) {
	p.pos = start
	depth := 0

	for !p.atEnd() {
		t := p.peek(0)
		if depth == 0 && t.Is(KindCloseBracket, "}") && p.pos > start {
			return
		}

		p.next()

		switch {
		case t.Is(KindOpenBracket, "{"):
			depth++
		case t.Is(KindCloseBracket, "}"):
			depth--
		case t.Kind == KindSemicolon && depth <= 0:
			return
		}
	}
}

func (p *parser) closeBody() bool {
	if !p.peek(0).Is(KindCloseBracket, "}") {
		return false
	}

	p.next()
	p.state = stateRoot
	p.scope = nil

	return true
}

func (p *parser) isReserved(t Token) bool {
	return t.Equals("struct") || t.Equals("include")
}

// methodHeader parses "name :: ( (Type param [,])* ) [-> Type] {".
func (p *parser) methodHeader() (*Node, match) {
	if t := p.peek(0); t.Kind != KindIdentifier || p.isReserved(t) {
		return nil, noMatch
	}

	name := p.next()

	if !p.next().Is(KindOperator, "::") {
		p.errorf("'::' expected.")

		return nil, failed
	}

	if !p.next().Is(KindOpenBracket, "(") {
		p.errorf("'(' expected.")

		return nil, failed
	}

	n := NewNode(NodeMethod, name)

	for !p.peek(0).Is(KindCloseBracket, ")") {
		if p.atEnd() {
			p.errorf("')' expected.")

			return nil, failed
		}

		typ := p.next()
		if typ.Kind != KindIdentifier {
			p.errorf("Identifier expected for parameter type #%d.", len(n.Params))

			return nil, failed
		}

		param := p.next()
		if param.Kind != KindIdentifier {
			p.errorf("Identifier expected for parameter name #%d.", len(n.Params))

			return nil, failed
		}

		n.Params = append(n.Params, Param{Type: typ, Name: param})

		if p.peek(0).Kind == KindComma {
			p.next()
		}
	}

	p.next()

	if p.peek(0).Is(KindOperator, "->") {
		p.next()

		ret := p.next()
		if ret.Kind != KindIdentifier {
			p.errorf("Method return type: Identifier expected.")

			return nil, failed
		}

		n.Type = ret
	}

	if !p.next().Is(KindOpenBracket, "{") {
		p.errorf("'{' expected.")

		return nil, failed
	}

	p.state, p.scope = stateMethod, n

	return n, matched
}

// structHeader parses "struct Name {".
func (p *parser) structHeader() (*Node, match) {
	if !p.peek(0).Is(KindIdentifier, "struct") {
		return nil, noMatch
	}

	p.next()

	name := p.next()
	if name.Kind != KindIdentifier {
		p.errorf("Structs need identifiers as their name.")

		return nil, failed
	}

	if !p.next().Is(KindOpenBracket, "{") {
		p.errorf("'{' expected.")

		return nil, failed
	}

	n := NewNode(NodeStruct, name)
	p.state, p.scope = stateStruct, n

	return n, matched
}

// structMember parses "Type name;" or the closing '}'.
func (p *parser) structMember(start int) {
	if p.closeBody() {
		return
	}

	typ := p.next()
	if typ.Kind != KindIdentifier {
		p.errorf("Expected identifier for field type.")
		p.recoverStatement(start)

		return
	}

	name := p.next()
	if name.Kind != KindIdentifier {
		p.errorf("Expected identifier for field name.")
		p.recoverStatement(start)

		return
	}

	if p.peek(0).Kind != KindSemicolon {
		p.errorf("';' expected.")
		p.recoverStatement(start)

		return
	}

	p.next()

	field := NewNode(NodeField, name)
	field.Type = typ
	p.scope.Add(field)
}

// methodStatement parses one ';'-terminated statement or the closing '}'.
func (p *parser) methodStatement(start int) {
	if p.closeBody() {
		return
	}

	tok := p.peek(0)
	if tok.Kind == KindSemicolon {
		p.next()

		return
	}

	n, m := p.statement()

	switch m {
	case noMatch:
		p.errorAt(tok, "Not sure what to do with '%s'.", tok.Text())
		p.recoverStatement(start)

	case failed:
		p.recoverStatement(start)

	case matched:
		if p.peek(0).Kind != KindSemicolon {
			p.errorf("';' expected.")
			p.recoverStatement(start)

			return
		}

		p.next()
		p.scope.Add(n)
	}
}

// statement tries a local assignment, a return, then an expression.
func (p *parser) statement() (*Node, match) {
	for _, production := range []func() (*Node, match){
		p.localAssignment, p.returnStatement, p.expression,
	} {
		if n, m := production(); m != noMatch {
			return n, m
		}
	}

	return nil, noMatch
}

func (p *parser) localAssignment() (*Node, match) {
	name := p.peek(0)
	if name.Kind != KindIdentifier || !p.peek(1).Is(KindOperator, ":=") {
		return nil, noMatch
	}

	p.next()
	p.next()

	expr, m := p.expression()

	switch m {
	case noMatch:
		p.errorf("Local declaration '%s := (...)' is missing its right hand side.",
			name.Text())

		return nil, failed
	case failed:
		return nil, failed
	}

	n := NewNode(NodeLocalAssignment, name)
	n.Add(expr)

	return n, matched
}

func (p *parser) returnStatement() (*Node, match) {
	if !p.peek(0).Is(KindIdentifier, "return") {
		return nil, noMatch
	}

	n := NewNode(NodeReturn, p.next())

	expr, m := p.expression()

	switch m {
	case failed:
		return nil, failed
	case matched:
		n.Add(expr)
	}

	return n, matched
}

// expression parses operands and binary operators into a linearized
// Expression node using an explicit operator stack. An operator on the stack
// is emitted only when its precedence is strictly greater than the incoming
// one, so "a - b - c" yields "a b c - -". A nil stack entry marks an open
// parenthesis.
func (p *parser) expression() (*Node, match) {
	expr := NewNode(NodeExpression, p.peek(0))

	var stack []*Node

	open := 0
	operand := true

	for {
		if operand {
			if p.peek(0).Is(KindOpenBracket, "(") {
				p.next()

				stack = append(stack, nil)
				open++

				continue
			}

			n, m := p.subExpression()

			switch m {
			case failed:
				return nil, failed
			case noMatch:
				if len(expr.Children) == 0 && len(stack) == 0 {
					return nil, noMatch
				}

				p.errorf("Expressions need to end with a constant or a call, not with an operator.")

				return nil, failed
			}

			expr.Add(n)

			operand = false

			continue
		}

		t := p.peek(0)

		if t.Is(KindCloseBracket, ")") && open > 0 {
			p.next()

			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if top == nil {
					break
				}

				expr.Add(top)
			}

			open--

			continue
		}

		if t.Kind != KindOperator {
			break
		}

		p.next()

		prec := Precedence(t.Text())
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top == nil || Precedence(top.Token.Text()) <= prec {
				break
			}

			stack = stack[:len(stack)-1]
			expr.Add(top)
		}

		stack = append(stack, NewNode(NodeOperator, t))
		operand = true
	}

	if open > 0 {
		p.errorf("')' expected.")

		return nil, failed
	}

	for i := len(stack) - 1; i >= 0; i-- {
		expr.Add(stack[i])
	}

	return expr, matched
}

func (p *parser) subExpression() (*Node, match) {
	for _, production := range []func() (*Node, match){
		p.keyword,
		p.noteSequence,
		p.variation,
		p.constant,
		p.placeholder,
		p.dereference,
		p.yield,
		p.call,
	} {
		if n, m := production(); m != noMatch {
			return n, m
		}
	}

	return nil, noMatch
}

// keyword turns an interval keyword into its semitone offset and a scale
// keyword into the name of the runtime scale value.
func (p *parser) keyword() (*Node, match) {
	t := p.peek(0)
	if t.Kind != KindKeyword {
		return nil, noMatch
	}

	p.next()

	n := NewNode(NodeConstant, t)

	if semis, ok := Interval(t.Span()); ok {
		n.Token = t.Substitute(strconv.Itoa(semis))
		n.Constant = ConstInt
	} else if name, ok := ScaleName(t.Span()); ok {
		n.Token = t.Substitute(name)
		n.Constant = ConstScale
	}

	return n, matched
}

// noteSequence parses a run of (note-head, operand) pairs.
func (p *parser) noteSequence() (*Node, match) {
	if p.peek(0).Kind != KindNoteHead || p.peek(1).Kind == KindQuestionMark {
		return nil, noMatch
	}

	seq := NewNode(NodeNoteSequence, p.peek(0))

	for p.peek(0).Kind == KindNoteHead {
		head := p.next()

		var (
			operand *Node
			m       match
		)

		for _, production := range []func() (*Node, match){
			p.keyword, p.placeholder, p.constant, p.dereference, p.call,
		} {
			if operand, m = production(); m != noMatch {
				break
			}
		}

		switch m {
		case noMatch:
			p.errorf("Note sequence: Could not parse expression.")

			return nil, failed
		case failed:
			return nil, failed
		}

		expr := NewNode(NodeExpression, operand.Token)
		expr.Add(operand)

		note := NewNode(NodeNote, head)
		note.Duration = NoteDuration(head)
		note.Add(expr)

		seq.Add(note)
	}

	return seq, matched
}

// variation parses "source { expr, ... }".
func (p *parser) variation() (*Node, match) {
	if p.peek(0).Kind != KindIdentifier || !p.peek(1).Is(KindOpenBracket, "{") {
		return nil, noMatch
	}

	n := NewNode(NodeNoteSequenceVariation, p.next())
	p.next()

	for {
		expr, m := p.expression()

		switch m {
		case noMatch:
			p.errorf("Note sequence: Could not parse expression.")

			return nil, failed
		case failed:
			return nil, failed
		}

		n.Add(expr)

		if p.peek(0).Is(KindCloseBracket, "}") {
			p.next()

			return n, matched
		}

		if p.peek(0).Kind != KindComma {
			p.errorf("',' expected.")

			return nil, failed
		}

		p.next()
	}
}

// constant parses a number, a float written "N.M", or a string.
func (p *parser) constant() (*Node, match) {
	t := p.peek(0)

	switch t.Kind {
	case KindNumber:
		p.next()

		n := NewNode(NodeConstant, t)
		n.Constant = ConstInt

		dot, frac := p.peek(0), p.peek(1)
		if dot.Kind == KindDot && frac.Kind == KindNumber &&
			dot.Offset == t.Offset+t.Length && frac.Offset == dot.Offset+1 {
			p.next()
			p.next()

			n.Token.Length = frac.Offset + frac.Length - t.Offset
			n.Constant = ConstFloat
		}

		return n, matched

	case KindString:
		p.next()

		n := NewNode(NodeConstant, t)
		n.Constant = ConstString

		return n, matched

	default:
		return nil, noMatch
	}
}

// placeholder parses "?", "note-head?", each optionally followed by a pitch
// override written as an operand or a parenthesized expression.
func (p *parser) placeholder() (*Node, match) {
	t := p.peek(0)
	duration := float32(-1)

	switch {
	case t.Kind == KindQuestionMark:
		p.next()
	case t.Kind == KindNoteHead && p.peek(1).Kind == KindQuestionMark:
		p.next()
		p.next()

		duration = NoteDuration(t)
	default:
		return nil, noMatch
	}

	n := NewNode(NodePlaceholder, t)
	n.Duration = duration

	pitch, m := p.pitchOverride()

	switch m {
	case failed:
		return nil, failed
	case matched:
		n.Add(pitch)
	}

	return n, matched
}

func (p *parser) pitchOverride() (*Node, match) {
	if p.peek(0).Is(KindOpenBracket, "(") {
		p.next()

		expr, m := p.expression()

		switch m {
		case noMatch:
			p.errorf("Placeholder: pitch expression expected.")

			return nil, failed
		case failed:
			return nil, failed
		}

		if !p.next().Is(KindCloseBracket, ")") {
			p.errorf("')' expected.")

			return nil, failed
		}

		return expr, matched
	}

	for _, production := range []func() (*Node, match){
		p.keyword, p.constant, p.dereference, p.call,
	} {
		operand, m := production()
		if m == noMatch {
			continue
		}

		if m == failed {
			return nil, failed
		}

		expr := NewNode(NodeExpression, operand.Token)
		expr.Add(operand)

		return expr, matched
	}

	return nil, noMatch
}

// dereference parses "a.b.c" where "a" is not followed by a bracket.
func (p *parser) dereference() (*Node, match) {
	t := p.peek(0)
	if t.Kind != KindIdentifier || p.peek(1).Kind == KindOpenBracket {
		return nil, noMatch
	}

	n := NewNode(NodeLocalDereference, p.next())
	n.Path = append(n.Path, t)

	for p.peek(0).Kind == KindDot {
		p.next()

		if p.peek(0).Kind != KindIdentifier {
			p.errorf("Dereference can not end with '.': Identifier expected.")

			return nil, failed
		}

		n.Path = append(n.Path, p.next())
	}

	return n, matched
}

// yield parses "<< statement" into a call named "<<".
func (p *parser) yield() (*Node, match) {
	t := p.peek(0)
	if !t.Is(KindOperator, "<<") {
		return nil, noMatch
	}

	p.next()

	arg, m := p.statement()

	switch m {
	case noMatch:
		p.errorf("Expressions need to end with a constant or a call, not with an operator.")

		return nil, failed
	case failed:
		return nil, failed
	}

	n := NewNode(NodeMethodCall, t)
	n.Add(arg)

	return n, matched
}

// call parses "name(expr, ...)".
func (p *parser) call() (*Node, match) {
	if p.peek(0).Kind != KindIdentifier || !p.peek(1).Is(KindOpenBracket, "(") {
		return nil, noMatch
	}

	n := NewNode(NodeMethodCall, p.next())
	p.next()

	for !p.peek(0).Is(KindCloseBracket, ")") {
		arg, m := p.expression()
		if m == failed {
			return nil, failed
		}

		if m == noMatch {
			break
		}

		n.Add(arg)

		if p.peek(0).Kind != KindComma {
			break
		}

		p.next()
	}

	if !p.next().Is(KindCloseBracket, ")") {
		p.errorf("')' expected.")

		return nil, failed
	}

	return n, matched
}
