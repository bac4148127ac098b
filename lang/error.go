package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrReadInput          = NewError("failed to read input")
	ErrUnterminatedString = NewError("unterminated string literal")
	ErrUnterminatedBlock  = NewError("unterminated block comment")
	ErrUnexpectedChar     = NewError("unexpected character")
	ErrTokenPoolExhausted = NewError("token pool exhausted")
	ErrCompile            = NewError("compilation failed")
)

// Position locates a diagnostic in a source file.
type Position struct {
	File string
	Line int
}

// String returns the position as "<file>(<line>)".
func (p Position) String() string {
	return fmt.Sprintf("%s(%d)", p.File, p.Line)
}

// Error is an error with an optional source position and structured logging
// attributes. Copies made by [Error.Wrap], [Error.With], and
// [Error.WithPosition] still match their sentinel with [errors.Is].
type Error struct {
	kind  *Error
	err   error
	pos   *Position
	msg   string
	attrs []slog.Attr
}

// NewError creates a new sentinel Error.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError converts err into an *Error, reusing it if it already is one.
func WrapError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{err: err}
}

func (e *Error) base() *Error {
	if e.kind != nil {
		return e.kind
	}

	return e
}

func (e *Error) derive() *Error {
	c := *e
	c.kind = e.base()

	return &c
}

// Error formats the error as "[<file>(<line>): ]<msg>[: <cause>]".
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	msg := strings.Join(part, ": ")
	if e.pos != nil {
		return e.pos.String() + ": " + msg
	}

	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.base() == e.base()
}

// LogValue implements [slog.LogValuer].
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	if e.pos != nil {
		attrs = append(attrs, slog.String("at", e.pos.String()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap returns a copy of e wrapping err.
func (e *Error) Wrap(err error) *Error {
	c := e.derive()
	c.err = err

	return c
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.derive()
	c.attrs = append(e.attrs[:len(e.attrs):len(e.attrs)], attrs...)

	return c
}

// WithPosition returns a copy of e located at pos.
func (e *Error) WithPosition(pos Position) *Error {
	c := e.derive()
	c.pos = &pos

	return c
}

// Position returns the source position attached to e, if any.
func (e *Error) Position() (Position, bool) {
	if e.pos == nil {
		return Position{}, false
	}

	return *e.pos, true
}

// Diagnostic is one user-facing compile problem.
type Diagnostic struct {
	Position
	Message string
}

// String formats the diagnostic as "<file>(<line>): <message>".
func (d Diagnostic) String() string {
	return d.Position.String() + ": " + d.Message
}

// Diagnostics accumulates compile problems across lexing, parsing, and code
// generation. An empty list means success.
type Diagnostics []Diagnostic

// Add appends a diagnostic at pos.
func (d *Diagnostics) Add(pos Position, format string, args ...any) {
	*d = append(*d, Diagnostic{Position: pos, Message: fmt.Sprintf(format, args...)})
}

// Append appends every diagnostic in other.
func (d *Diagnostics) Append(other Diagnostics) {
	*d = append(*d, other...)
}

// String returns one diagnostic per line.
func (d Diagnostics) String() string {
	var sb strings.Builder

	for _, diag := range d {
		sb.WriteString(diag.String())
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Err returns nil if d is empty, otherwise an [ErrCompile] carrying d.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}

	return ErrCompile.Wrap(diagnosticsError(d)).
		With(slog.Int("diagnostics", len(d)))
}

type diagnosticsError Diagnostics

func (d diagnosticsError) Error() string {
	return strings.TrimSuffix(Diagnostics(d).String(), "\n")
}

// AsDiagnostics recovers the diagnostics carried by an error returned from
// [Diagnostics.Err].
func AsDiagnostics(err error) (Diagnostics, bool) {
	var d diagnosticsError
	if errors.As(err, &d) {
		return Diagnostics(d), true
	}

	return nil, false
}

// diagnosticOf converts a lexical error into a diagnostic, falling back to
// file for errors that carry no position.
func diagnosticOf(err error, file string) Diagnostic {
	e := WrapError(err)

	pos, ok := e.Position()
	if !ok {
		pos = Position{File: file}
	}

	msg := e.msg
	if e.err != nil {
		msg = e.err.Error()
		if e.msg != "" {
			msg = e.msg + ": " + msg
		}
	}

	if msg != "" {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return Diagnostic{Position: pos, Message: msg + "."}
}
