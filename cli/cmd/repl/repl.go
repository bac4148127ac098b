package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/cflat/host"
	"github.com/ardnew/cflat/log"
)

// editSessionMsg is sent when editing replaced the session.
type editSessionMsg struct{}

// editUnchangedMsg is sent when the editor left the source as it was.
type editUnchangedMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a
// diagnostic.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails.
type editErrorMsg struct{ err error }

// runMsg carries the outcome of running the session program.
type runMsg struct {
	err    error
	result host.Result
}

const (
	evalPrompt = "♪ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help     Print this cruft
  list     List declared methods and structs
  edit     Edit declarations in external $EDITOR
  go       Print the Go program generated for the declarations
  run      Build and run the declarations (requires main)
  reset    Forget every declaration
  clear    Clear screen
  quit     Exit REPL

Usage:
  Enter a method, struct, or include declaration to add it to the session
  Enter statements to print the Go they translate to
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to switch to command mode and navigate command history
    (restores original mode when reaching end of history)
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
//
//nolint:gochecknoglobals
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// formatCommand formats the echo line of an eval-mode input.
func formatCommand(input string) string {
	return promptStyle.Render(evalPrompt) + inputStyle.Render(input)
}

// formatCtrlCommand formats the echo line of a control command.
func formatCtrlCommand(input string) string {
	return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc          func() context.Context
	session          *Session
	history          *History
	logger           log.Logger
	input            textinput.Model
	matches          fuzzy.Matches // current fuzzy match results
	candidates       []string      // backing candidate list
	historyIdx       int
	wordStart        int  // byte offset of current word start
	wordEnd          int  // byte offset of current word end
	suggIdx          int  // selected candidate index
	tabActive        bool // whether user is tab-cycling
	preTabText       string
	preTabCursor     int
	altNavActive     bool // whether user is in Alt+Up/Down navigation
	altNavOrigMode   inputMode
	altNavOrigText   string
	altNavOrigCursor int
	width            int
	quitting         bool
	running          bool
	mode             inputMode
	evalText         string
	evalCursor       int
	ctrlText         string
	ctrlCursor       int
}

// Run starts the REPL. Declarations read from reader, if any, seed the
// session. History is kept in cacheDir unless it is empty.
func Run(
	ctx context.Context,
	reader io.Reader,
	cacheDir string,
	logger log.Logger,
	opts ...SessionOption,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Bool("has_source", reader != nil),
	)

	session := NewSession(append([]SessionOption{WithLogger(logger)}, opts...)...)

	if reader != nil {
		data, err := io.ReadAll(reader)
		if err != nil {
			return err
		}

		diags, err := session.Declare(ctx, string(data))
		if err != nil {
			return err
		}

		if err := diags.Err(); err != nil {
			return err
		}
	}

	logger.TraceContext(ctx, "repl session loaded",
		slog.Int("method_count", len(session.Methods())),
		slog.Int("struct_count", len(session.Structs())),
	)

	var path string
	if cacheDir != "" {
		path = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	p := tea.NewProgram(newModel(ctx, session, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	session *Session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    session,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editSessionMsg:
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Int("method_count", len(m.session.Methods())),
		)

		return m, tea.Println(resultStyle.Render("✔ session updated"))

	case editUnchangedMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit unchanged"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))

	case runMsg:
		m.running = false

		return m, tea.Println(formatRun(msg))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectFunctionCall(input, m.input.Position())

	switch {
	case m.running:
		b.WriteString(hintStyle.Render("running..."))

	case m.historyIdx < m.history.Len():
		b.WriteString(hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())))

	case strings.TrimSpace(input) == "":
		hint := "Type a declaration or statement, or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case call.inCall && m.mode == modeEval:
		if sig, ok := getSignature(m.session, call.name); ok {
			b.WriteString(renderSignatureHint(sig, call.argIndex))
		} else {
			b.WriteString(m.renderCandidateBar())
		}

	default:
		b.WriteString(m.renderCandidateBar())
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1), nil

	case tea.KeyShiftUp:
		return m.historyInMode(-1), nil

	case tea.KeyShiftDown:
		return m.historyInMode(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		return m.toggleMode(), nil

	case tea.KeyRunes:
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping at either end. A single
// candidate is completed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n
	case step < 0:
		m.suggIdx = n - 1
	default:
		m.suggIdx = 0
	}

	if !m.tabActive {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word boundaries in the input with
// the given replacement text and repositions the cursor.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true it also confirms the completion when exactly one
// candidate remains and the typed word already equals it.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	candidate := m.matches[0].Str

	if m.input.Value()[m.wordStart:m.wordEnd] == candidate {
		replaceCurrentWord(m, candidate)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")

	if err := m.history.Write(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		return m.executeCommand(input)
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval", slog.String("input", input))

	echo := tea.Println(formatCommand(input))

	reply, err := m.session.Eval(m.ctxFunc(), input)
	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(echo, tea.Println(formatReply(reply)))
}

// formatReply renders the outcome of an evaluated input.
func formatReply(r Reply) string {
	switch {
	case len(r.Diagnostics) > 0:
		return errorStyle.Render(strings.TrimRight(r.Diagnostics.String(), "\n"))
	case r.Kind == ReplyDeclared:
		return resultStyle.Render("✔ declared " + strings.Join(r.Names, ", "))
	case r.Go == "":
		return hintStyle.Render("(no statements)")
	default:
		return resultStyle.Render(r.Go)
	}
}

// formatRun renders the outcome of running the session program.
func formatRun(msg runMsg) string {
	res := msg.result

	var b strings.Builder

	b.WriteString(strings.TrimRight(res.Stdout, "\n"))

	switch {
	case msg.err != nil:
		b.WriteString(errorStyle.Render("error: " + msg.err.Error()))
	case len(res.Diagnostics) > 0:
		b.WriteString(errorStyle.Render(strings.TrimRight(res.Diagnostics.String(), "\n")))
	case res.Failed():
		if len(res.Stderr) > 0 {
			b.WriteString("\n" + errorStyle.Render(strings.TrimRight(res.Stderr, "\n")))
		}

		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("exit status %d", res.ExitCode)))
	}

	return strings.TrimLeft(b.String(), "\n")
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echo := tea.Println(formatCtrlCommand(input))

	m.logger.TraceContext(m.ctxFunc(), "repl exec command",
		slog.String("command", parts[0]),
		slog.Any("args", parts[1:]),
	)

	switch parts[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echo, tea.Println(m.listDeclarations()))

	case "c", "clear":
		return m, tea.ClearScreen

	case "reset":
		m.session.Reset()
		refreshMatches(&m, false)

		return m, tea.Sequence(echo, tea.Println(resultStyle.Render("✔ session reset")))

	case "go":
		src, diags := m.session.Program(m.ctxFunc())
		if len(diags) > 0 {
			return m, tea.Sequence(echo, tea.Println(formatReply(Reply{Diagnostics: diags})))
		}

		return m, tea.Sequence(echo, tea.Println(src))

	case "r", "run":
		if _, ok := m.session.Method("main"); !ok {
			return m, tea.Sequence(echo, tea.Println(errorStyle.Render(ErrNoEntry.Error())))
		}

		m.running = true
		session, ctx := m.session, m.ctxFunc()

		return m, tea.Sequence(echo, func() tea.Msg {
			res, err := session.Run(ctx)

			return runMsg{result: res, err: err}
		})

	case "e", "edit":
		return m, tea.Sequence(echo, m.edit())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + parts[0] + " (try 'help')"),
		)
	}
}

func (m model) edit() tea.Cmd {
	cmd := &editSessionCommand{
		session: m.session,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case !cmd.edited:
			return editUnchangedMsg{}
		default:
			return editSessionMsg{}
		}
	})
}

func (m model) listDeclarations() string {
	var b strings.Builder

	for _, n := range m.session.Structs() {
		fmt.Fprintf(&b, "  %s %s\n", n.Name(), hintStyle.Render(formatPreview(n)))
	}

	for _, n := range m.session.Methods() {
		fmt.Fprintf(&b, "  %s %s\n", n.Name(), hintStyle.Render(formatPreview(n)))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (no declarations)")
	}

	return strings.TrimRight(b.String(), "\n")
}

// showHistory loads history entry i into the input, switching mode if the
// entry was entered in the other one.
func (m model) showHistory(i int, entry HistoryEntry) model {
	if m.mode != entry.Mode {
		m = m.switchToMode(entry.Mode)
	}

	m.historyIdx = i
	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	refreshMatches(&m, false)

	return m
}

// findHistory returns the first entry after historyIdx in direction step
// accepted by match.
func (m model) findHistory(step int, match func(HistoryEntry) bool) (int, HistoryEntry, bool) {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		if entry, err := m.history.Entry(i); err == nil && match(entry) {
			return i, entry, true
		}
	}

	return 0, HistoryEntry{}, false
}

// clearHistory leaves history navigation with an empty input.
func (m model) clearHistory() model {
	m.historyIdx = m.history.Len()
	m.input.SetValue("")
	refreshMatches(&m, false)

	return m
}

func anyEntry(HistoryEntry) bool { return true }

// historyStep moves through all history, switching mode as needed.
func (m model) historyStep(step int) model {
	if i, entry, ok := m.findHistory(step, anyEntry); ok {
		return m.showHistory(i, entry)
	}

	if step > 0 {
		return m.clearHistory()
	}

	return m
}

// historyInMode moves through the history of the current mode only.
func (m model) historyInMode(step int) model {
	mode := m.mode

	if i, entry, ok := m.findHistory(step, func(e HistoryEntry) bool { return e.Mode == mode }); ok {
		return m.showHistory(i, entry)
	}

	if step > 0 && m.historyIdx < m.history.Len() {
		return m.clearHistory()
	}

	return m
}

// historyCtrl moves through command history, restoring the original mode
// and input once either end is passed.
func (m model) historyCtrl(step int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	if i, entry, ok := m.findHistory(step, func(e HistoryEntry) bool { return e.Mode == modeCtrl }); ok {
		return m.showHistory(i, entry)
	}

	m.altNavActive = false
	if m.altNavOrigMode != m.mode {
		m = m.switchToMode(m.altNavOrigMode)
	}

	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

// toggleMode switches between eval and control modes.
func (m model) toggleMode() model {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode switches to mode, preserving the input of each mode.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
