package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/cflat/lang"
)

// callSignature describes the parameters of a method.
type callSignature struct {
	name   string
	result string
	params []string
}

// builtinSignatures lists the signatures of the built-in methods. Bracketed
// parameters may be omitted.
//
//nolint:gochecknoglobals
var builtinSignatures = map[string]callSignature{
	"print":     {name: "print", params: []string{"value"}},
	"signature": {name: "signature", params: []string{"i32 top", "i32 bottom"}},
	"tempo":     {name: "tempo", params: []string{"[i32 bpm]"}, result: "i32"},
	"using":     {name: "using", params: []string{"scale s"}},
}

// Styles for parameter hints.
//
//nolint:gochecknoglobals
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall represents a detected method call in the input.
type functionCall struct {
	name     string
	argIndex int
	inCall   bool
}

// detectFunctionCall reports whether the cursor is inside the argument list
// of a call, and if so which method and argument.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	depth := 0
	open := -1

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			}

			depth--
		}
	}

	if open < 0 {
		return functionCall{}
	}

	nameStart := open

	for nameStart > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:nameStart])
		if isWordBoundary(r) {
			break
		}

		nameStart -= size
	}

	name := input[nameStart:open]
	if name == "" {
		return functionCall{}
	}

	argIndex := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// getSignature returns the signature of the method called name, searching
// the session before the built-in methods.
func getSignature(s *Session, name string) (callSignature, bool) {
	if n, ok := s.Method(name); ok {
		return methodSignature(n), true
	}

	sig, ok := builtinSignatures[name]

	return sig, ok
}

func methodSignature(n *lang.Node) callSignature {
	sig := callSignature{name: n.Name(), result: n.Type.Text()}

	for _, p := range n.Params {
		sig.params = append(sig.params, p.Type.Text()+" "+p.Name.Text())
	}

	return sig
}

// String formats the signature the way a method header declares it.
func (c callSignature) String() string {
	s := c.name + " :: (" + strings.Join(c.params, ", ") + ")"
	if c.result != "" {
		s += " -> " + c.result
	}

	return s
}

// formatSignature formats the header of a method declaration.
func formatSignature(n *lang.Node) string {
	return methodSignature(n).String()
}

// renderSignatureHint renders the signature with the current argument
// highlighted.
func renderSignatureHint(sig callSignature, currentArgIdx int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(sig.name))
	b.WriteString(signatureStyle.Render(" :: ("))

	for i, param := range sig.params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		if i == currentArgIdx {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	if sig.result != "" {
		b.WriteString(signatureStyle.Render(" -> " + sig.result))
	}

	return b.String()
}
