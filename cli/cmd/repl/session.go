package repl

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/host"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/log"
)

// DefaultName is the file name diagnostics in a session refer to.
const DefaultName = "repl.cb"

// evalMethod is the method statements are wrapped in before they are
// translated.
const evalMethod = "__eval"

// Session accumulates the declarations entered at the prompt. Declarations
// are kept as source text and reparsed together, so every accepted entry is
// valid in the context of all earlier ones.
type Session struct {
	root    *lang.Node
	runner  host.Runner
	logger  log.Logger
	name    string
	decls   []string
	include []string
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithLogger sets the logger used for session records.
func WithLogger(logger log.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithRunner sets the runner used by [Session.Run].
func WithRunner(r host.Runner) SessionOption {
	return func(s *Session) { s.runner = r }
}

// WithIncludePath adds directories searched for included files.
func WithIncludePath(dirs ...string) SessionOption {
	return func(s *Session) { s.include = append(s.include, dirs...) }
}

// WithName sets the file name used in diagnostics.
func WithName(name string) SessionOption {
	return func(s *Session) {
		if name != "" {
			s.name = name
		}
	}
}

// NewSession returns an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{name: DefaultName}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ReplyKind tells what an evaluated input was.
type ReplyKind int

const (
	// ReplyDeclared marks input that added declarations to the session.
	ReplyDeclared ReplyKind = iota
	// ReplyGenerated marks statements translated to Go.
	ReplyGenerated
)

// Reply is the outcome of [Session.Eval]. When Diagnostics is non-empty the
// session is unchanged.
type Reply struct {
	Go          string
	Names       []string
	Diagnostics lang.Diagnostics
	Kind        ReplyKind
}

// Source returns the accepted declarations.
func (s *Session) Source() string {
	if len(s.decls) == 0 {
		return ""
	}

	return strings.Join(s.decls, "\n") + "\n"
}

// Root returns the syntax tree of the accepted declarations, or nil if
// there are none.
func (s *Session) Root() *lang.Node { return s.root }

// Reset forgets every declaration.
func (s *Session) Reset() {
	s.decls = nil
	s.root = nil
}

// Eval adds input to the session if it declares something, and otherwise
// translates it as a list of statements.
func (s *Session) Eval(ctx context.Context, input string) (Reply, error) {
	input = strings.TrimSpace(input)

	if IsDeclaration(ctx, input) {
		diags, err := s.Declare(ctx, input)
		if err != nil {
			return Reply{}, err
		}

		reply := Reply{Kind: ReplyDeclared, Diagnostics: diags}
		if len(diags) == 0 {
			reply.Names = s.declaredIn(ctx, input)
		}

		return reply, nil
	}

	code, diags, err := s.Translate(ctx, input)
	if err != nil {
		return Reply{}, err
	}

	return Reply{Kind: ReplyGenerated, Go: code, Diagnostics: diags}, nil
}

// Declare appends the declarations in text to the session. Nothing is
// added if text has problems.
func (s *Session) Declare(ctx context.Context, text string) (lang.Diagnostics, error) {
	prior := s.Source()

	root, diags, err := s.check(ctx, prior+text+"\n")
	if err != nil {
		return nil, err
	}

	if len(diags) > 0 {
		return s.relative(diags, lineCount(prior)), nil
	}

	s.decls = append(s.decls, strings.TrimRight(text, "\n"))
	s.root = root

	s.logger.DebugContext(ctx, "session declared",
		slog.Int("entries", len(s.decls)),
	)

	return nil, nil
}

// Replace discards the session and declares text in its place. Nothing
// changes if text has problems.
func (s *Session) Replace(ctx context.Context, text string) (lang.Diagnostics, error) {
	if strings.TrimSpace(text) == "" {
		s.Reset()

		return nil, nil
	}

	root, diags, err := s.check(ctx, text)
	if err != nil || len(diags) > 0 {
		return diags, err
	}

	s.decls = []string{strings.TrimRight(text, "\n")}
	s.root = root

	return nil, nil
}

// Translate returns the Go statements generated for input in the context of
// the session's declarations.
func (s *Session) Translate(ctx context.Context, input string) (string, lang.Diagnostics, error) {
	if !strings.HasSuffix(input, ";") && !strings.HasSuffix(input, "}") {
		input += ";"
	}

	header := evalMethod + " :: () {\n"
	if strings.Contains(input, "<<") {
		header = evalMethod + " :: () -> seq {\n"
	}

	prior := s.Source()

	root, diags, err := s.parse(ctx, prior+header+input+"\n}\n")
	if err != nil {
		return "", nil, err
	}

	if len(diags) > 0 {
		return "", s.relative(diags, lineCount(prior)+1), nil
	}

	out, diags := codegen.Generate(ctx, root, codegen.WithLogger(s.logger))
	if len(diags) > 0 {
		return "", s.relative(diags, lineCount(prior)+1), nil
	}

	return methodBody(out, evalMethod), nil, nil
}

// Program returns the Go program generated for the session.
func (s *Session) Program(ctx context.Context) (string, lang.Diagnostics) {
	if s.root == nil {
		return codegen.Generate(ctx, &lang.Node{Kind: lang.NodeAst, File: s.name})
	}

	return codegen.Generate(ctx, s.root, codegen.WithLogger(s.logger))
}

// Run builds and runs the session's program. The session must declare
// main.
func (s *Session) Run(ctx context.Context) (host.Result, error) {
	if s.runner == nil {
		return host.Result{}, ErrNoRunner
	}

	src, diags := s.Program(ctx)
	if len(diags) > 0 {
		return host.Result{Diagnostics: diags}, nil
	}

	return s.runner.Run(ctx, host.Program{Name: s.name, Source: src})
}

// Methods returns the method declarations of the session, including those
// of included files.
func (s *Session) Methods() []*lang.Node {
	return s.declarations(lang.NodeMethod)
}

// Structs returns the struct declarations of the session, including those
// of included files.
func (s *Session) Structs() []*lang.Node {
	return s.declarations(lang.NodeStruct)
}

// Method returns the method named name.
func (s *Session) Method(name string) (*lang.Node, bool) {
	i := slices.IndexFunc(s.Methods(), func(n *lang.Node) bool { return n.Name() == name })
	if i < 0 {
		return nil, false
	}

	return s.Methods()[i], true
}

func (s *Session) declarations(kind lang.NodeKind) []*lang.Node {
	if s.root == nil {
		return nil
	}

	var out []*lang.Node

	s.root.Walk(func(n *lang.Node) bool {
		switch n.Kind {
		case lang.NodeAst, lang.NodeInclude:
			return true
		case kind:
			out = append(out, n)
		}

		return false
	})

	return out
}

// check parses text and translates the result, returning the diagnostics of
// whichever step fails first.
func (s *Session) check(ctx context.Context, text string) (*lang.Node, lang.Diagnostics, error) {
	root, diags, err := s.parse(ctx, text)
	if err != nil || len(diags) > 0 {
		return root, diags, err
	}

	_, diags = codegen.Generate(ctx, root, codegen.WithLogger(s.logger), codegen.WithFormat(false))

	return root, diags, nil
}

func (s *Session) parse(ctx context.Context, text string) (*lang.Node, lang.Diagnostics, error) {
	return lang.ParseSource(ctx, &lang.Source{Name: s.name, Text: []byte(text)},
		lang.WithLogger(s.logger),
		lang.WithIncludePath(s.include...),
	)
}

// relative shifts the lines of diagnostics in the session file so they
// count from the start of the entered text.
func (s *Session) relative(diags lang.Diagnostics, offset int) lang.Diagnostics {
	out := make(lang.Diagnostics, len(diags))

	for i, d := range diags {
		if d.File == s.name && d.Line > offset {
			d.Line -= offset
		}

		out[i] = d
	}

	return out
}

// declaredIn lists the names declared by text.
func (s *Session) declaredIn(ctx context.Context, text string) []string {
	root, _, err := s.parse(ctx, text)
	if err != nil || root == nil {
		return nil
	}

	var names []string

	for _, n := range root.Children {
		switch n.Kind {
		case lang.NodeMethod, lang.NodeStruct:
			names = append(names, n.Name())
		case lang.NodeInclude:
			names = append(names, n.File)
		}
	}

	return names
}

// IsDeclaration reports whether input starts a struct, method or include
// declaration rather than a statement.
func IsDeclaration(ctx context.Context, input string) bool {
	src := &lang.Source{Name: DefaultName, Text: []byte(input)}

	stream, err := lang.Tokenize(ctx, lang.NewPool(0), src, 0, len(src.Text))
	if err != nil || stream.Len() == 0 {
		return false
	}

	first := stream.At(0)
	if first.Kind != lang.KindIdentifier {
		return false
	}

	if first.Equals("struct") || first.Equals("include") {
		return true
	}

	return stream.At(1).Is(lang.KindOperator, "::")
}

// methodBody extracts the statements of the Go function name from src,
// with one level of indentation removed.
func methodBody(src, name string) string {
	start := strings.Index(src, "\nfunc "+name+"(")
	if start < 0 {
		return ""
	}

	open := strings.Index(src[start:], "{\n")
	if open < 0 {
		return ""
	}

	body := src[start+open+2:]

	if end := strings.Index(body, "\n}"); end >= 0 {
		body = body[:end]
	} else if strings.HasPrefix(body, "}") {
		body = ""
	}

	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, "\t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func lineCount(s string) int { return strings.Count(s, "\n") }
