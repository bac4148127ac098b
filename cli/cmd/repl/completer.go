package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
)

// ctrlCommands are the available control-mode commands.
//
//nolint:gochecknoglobals
var ctrlCommands = []string{
	"help", "list", "edit", "go", "run", "reset", "clear", "quit",
}

// statementWords are the words that start a declaration or statement.
//
//nolint:gochecknoglobals
var statementWords = []string{"include", "struct", "return"}

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes. The apostrophe is excluded because identifiers may carry a
// trailing prime (a, a', a'').
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';', '"':
		return true
	}

	return lang.IsNoteHead(r)
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input.
// Returns an empty word when the cursor sits on a boundary (after a space,
// after a dot, start of line, etc.).
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the dot-separated chain leading up to the current word.
// For input "x := song.bar.no" with the word "no", the parent path is
// "song.bar". Returns "" for words that are not member accesses.
func parentPath(input string, wordStart int) string {
	if wordStart == 0 || input[wordStart-1] != '.' {
		return ""
	}

	prefix := input[:wordStart-1]
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return prefix[pos:]
}

// topCandidates returns every name that may start a word: keywords,
// built-in methods and types, and the names the session declares.
func topCandidates(s *Session) []string {
	names := slices.Concat(statementWords, codegen.Builtins, codegen.TypeNames(), lang.Keywords)

	for _, n := range s.Methods() {
		names = append(names, n.Name())
	}

	for _, n := range s.Structs() {
		names = append(names, n.Name())
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// memberCandidates returns the field names a member access may refer to.
// Locals are untyped at the prompt, so every declared field is offered.
func memberCandidates(s *Session) []string {
	var names []string

	for _, st := range s.Structs() {
		for _, f := range st.Children {
			if f.Kind == lang.NodeField {
				names = append(names, f.Name())
			}
		}
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// computeMatches calculates the fuzzy match results for the word at the cursor.
// It returns the matches (ranked best-first), the candidate list, and the word
// boundaries. When the current word is empty at the top level, it returns nil
// matches. When the word is empty after a dot, it returns every field.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, ws, we := wordBounds(input, cursor)
	wordStart, wordEnd = ws, we

	if m.mode == modeCtrl {
		if word == "" {
			return nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands
	} else {
		parent := parentPath(input, wordStart)
		if parent == "" {
			candidates = topCandidates(m.session)
		} else {
			candidates = memberCandidates(m.session)
		}

		if word == "" {
			if parent == "" || len(candidates) == 0 {
				return nil, nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, candidates, wordStart, wordEnd
		}
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	matches = fuzzy.Find(word, candidates)

	return matches, candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. The selected candidate (when tabbing) uses
// the selected style.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range m.matches {
		rendered := m.renderCandidate(match, m.tabActive && i == m.suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > m.width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Methods are displayed with a "()" suffix.
func (m model) renderCandidate(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matchSet := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matchSet[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matchSet[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if m.isMethod(match.Str) {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

// isMethod reports whether name can be called.
func (m model) isMethod(name string) bool {
	if slices.Contains(codegen.Builtins, name) {
		return true
	}

	_, ok := m.session.Method(name)

	return ok
}

// formatPreview summarizes a declaration for the list command.
func formatPreview(n *lang.Node) string {
	switch n.Kind {
	case lang.NodeMethod:
		return formatSignature(n)

	case lang.NodeStruct:
		fields := make([]string, 0, len(n.Children))
		for _, f := range n.Children {
			fields = append(fields, f.Type.Text()+" "+f.Name())
		}

		return "struct { " + strings.Join(fields, "; ") + " }"

	default:
		return n.String()
	}
}
