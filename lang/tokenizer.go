package lang

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keywords lists the reserved words in the order they are matched.
//
//nolint:gochecknoglobals
var Keywords = []string{
	"root", "2nd", "3rd", "4th", "5th", "6th", "7th", "octave",
	"8th", "9th", "10th", "11th", "12th", "13th", "14th",
	"cmaj", "dmaj", "emaj", "fmaj", "gmaj", "amaj", "bmaj",
	"cmin", "dmin", "emin", "fmin", "gmin", "amin", "bmin",
}

// noteHeads maps each note-head glyph to its duration in whole notes.
//
//nolint:gochecknoglobals
var noteHeads = map[rune]float32{
	'\U0001D15D': 1,
	'\U0001D15E': 0.5,
	'\U0001D15F': 0.25,
	'\U0001D160': 0.125,
	'\U0001D161': 0.0625,
	'\U0001D162': 0.03125,
	'\U0001D163': 0.015625,
	'♩':          0.25,
	'♪':          0.125,
}

// IsNoteHead reports whether r is a note-head glyph.
func IsNoteHead(r rune) bool {
	_, ok := noteHeads[r]

	return ok
}

// NoteDuration returns the summed duration of the glyphs spanned by a
// [KindNoteHead] token, or 0 for any other token.
func NoteDuration(t Token) float32 {
	if t.Kind != KindNoteHead {
		return 0
	}

	var d float32
	for _, r := range t.Span() {
		d += noteHeads[r]
	}

	return d
}

func isOperator(r rune) bool {
	return strings.ContainsRune("+-*/&|=!<>:", r)
}

func isIdentifier(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\''
}

// scanner holds the state of one Tokenize call.
type scanner struct {
	ctx  context.Context
	pool *Pool
	src  *Source
	pos  int
	end  int
	line int
}

// Tokenize scans src.Text[start:start+length] into pool and returns the
// stream of tokens it added. On error the pool is left as it was.
func Tokenize(
	ctx context.Context,
	pool *Pool,
	src *Source,
	start, length int,
) (Stream, error) {
	if start < 0 {
		start = 0
	}

	end := min(start+max(length, 0), len(src.Text))
	first := pool.Len()

	s := scanner{
		ctx:  ctx,
		pool: pool,
		src:  src,
		pos:  min(start, end),
		end:  end,
		line: 1,
	}

	if err := s.run(); err != nil {
		pool.tokens = pool.tokens[:first]

		return Stream{pool: pool, Name: src.Name, Start: first}, err
	}

	return Stream{
		pool:  pool,
		Name:  src.Name,
		Start: first,
		Count: pool.Len() - first,
	}, nil
}

func (s *scanner) fail(err *Error) *Error {
	return err.WithPosition(Position{File: s.src.Name, Line: s.line})
}

func (s *scanner) peek(off int) (rune, int) {
	if s.pos+off >= s.end {
		return utf8.RuneError, 0
	}

	return utf8.DecodeRune(s.src.Text[s.pos+off : s.end])
}

func (s *scanner) hasPrefix(p string) bool {
	return bytes.HasPrefix(s.src.Text[s.pos:s.end], []byte(p))
}

func (s *scanner) emit(kind Kind, offset, length int) error {
	ok := s.pool.push(Token{
		src:    s.src,
		Offset: offset,
		Length: length,
		Line:   s.line,
		Kind:   kind,
	})
	if !ok {
		return s.fail(ErrTokenPoolExhausted.With(
			slog.Int("capacity", s.pool.Cap()),
		))
	}

	return nil
}

// span consumes runes while accept holds and returns the consumed length.
func (s *scanner) span(accept func(rune) bool) int {
	from := s.pos

	for s.pos < s.end {
		r, n := s.peek(0)
		if !accept(r) {
			break
		}

		s.pos += n
	}

	return s.pos - from
}

func (s *scanner) run() error {
	for s.pos < s.end {
		if (s.pool.Len() & 0xfff) == 0 {
			if err := s.ctx.Err(); err != nil {
				return err
			}
		}

		r, n := s.peek(0)

		switch {
		case r == '\n':
			s.line++
			s.pos += n

			continue

		case unicode.IsSpace(r) || r == '\uFEFF':
			s.pos += n

			continue

		case s.hasPrefix("//"):
			for s.pos < s.end && s.src.Text[s.pos] != '\n' {
				s.pos++
			}

			continue

		case s.hasPrefix("/*"):
			if err := s.blockComment(); err != nil {
				return err
			}

			continue
		}

		if kw := s.keyword(); kw != "" {
			if err := s.emit(KindKeyword, s.pos, len(kw)); err != nil {
				return err
			}

			s.pos += len(kw)

			continue
		}

		var err error

		from := s.pos

		switch {
		case IsNoteHead(r):
			err = s.emit(KindNoteHead, from, s.span(IsNoteHead))

		case r == '"':
			err = s.stringLiteral()

		case isOperator(r):
			err = s.emit(KindOperator, from, s.span(isOperator))

		case unicode.IsDigit(r):
			err = s.emit(KindNumber, from, s.span(unicode.IsDigit))

		case isIdentifier(r):
			err = s.emit(KindIdentifier, from, s.span(isIdentifier))

		default:
			kind, ok := punctuation(r)
			if !ok {
				return s.fail(ErrUnexpectedChar.Wrap(
					&charError{r: r},
				))
			}

			err = s.emit(kind, from, n)
			s.pos += n
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// keyword returns the keyword starting at the current position, provided it
// is not followed by an identifier character.
func (s *scanner) keyword() string {
	for _, kw := range Keywords {
		if !s.hasPrefix(kw) {
			continue
		}

		if s.pos+len(kw) < s.end {
			next, _ := utf8.DecodeRune(s.src.Text[s.pos+len(kw) : s.end])
			if isIdentifier(next) {
				continue
			}
		}

		return kw
	}

	return ""
}

func (s *scanner) blockComment() error {
	line := s.line
	s.pos += 2

	for s.pos < s.end {
		if s.hasPrefix("*/") {
			s.pos += 2

			return nil
		}

		if s.src.Text[s.pos] == '\n' {
			s.line++
		}

		s.pos++
	}

	s.line = line

	return s.fail(ErrUnterminatedBlock)
}

func (s *scanner) stringLiteral() error {
	line := s.line
	from := s.pos + 1

	for i := from; i < s.end; i++ {
		if s.src.Text[i] != '"' {
			continue
		}

		if err := s.emit(KindString, from, i-from); err != nil {
			return err
		}

		s.line += strings.Count(string(s.src.Text[from:i]), "\n")
		s.pos = i + 1

		return nil
	}

	s.line = line

	return s.fail(ErrUnterminatedString)
}

func punctuation(r rune) (Kind, bool) {
	switch r {
	case '(', '{', '[':
		return KindOpenBracket, true
	case ')', '}', ']':
		return KindCloseBracket, true
	case ',':
		return KindComma, true
	case ';':
		return KindSemicolon, true
	case '.':
		return KindDot, true
	case '?':
		return KindQuestionMark, true
	case '|':
		return KindBar, true
	default:
		return KindInvalid, false
	}
}

type charError struct{ r rune }

func (e *charError) Error() string {
	if e.r == utf8.RuneError {
		return "invalid UTF-8"
	}

	return "'" + string(e.r) + "'"
}
