package lang

//go:generate go tool stringer --linecomment --type Kind --output token_string.go

import (
	"fmt"
	"iter"
	"strings"
)

// Kind classifies a [Token].
type Kind uint8

const (
	// KindInvalid is the zero Kind. It is never produced by the tokenizer
	// and marks the end-of-stream sentinel.
	KindInvalid      Kind = iota // invalid
	KindNumber                   // number
	KindString                   // string
	KindOperator                 // operator
	KindNoteHead                 // notehead
	KindIdentifier               // identifier
	KindOpenBracket              // open
	KindCloseBracket             // close
	KindComma                    // comma
	KindSemicolon                // semicolon
	KindDot                      // dot
	KindQuestionMark             // question
	KindBar                      // bar
	KindKeyword                  // keyword
)

// Source is one loaded source file. Tokens refer into Text; they never copy
// it.
type Source struct {
	Name string
	Text []byte
}

// Token is a lexical unit: a span of its [Source] plus an optional
// substitution that replaces the spanned text when the token is rewritten to
// a literal (an interval keyword becoming its semitone offset, for example).
type Token struct {
	src          *Source
	Substitution string
	Offset       int
	Length       int
	Line         int
	Kind         Kind
}

// Span returns the source text covered by t.
func (t Token) Span() string {
	if t.src == nil || t.Length == 0 {
		return ""
	}

	return string(t.src.Text[t.Offset : t.Offset+t.Length])
}

// Text returns the substitution if set, otherwise the spanned text.
func (t Token) Text() string {
	if t.Substitution != "" {
		return t.Substitution
	}

	return t.Span()
}

func (t Token) String() string { return t.Text() }

// Equals compares the spanned text of t with s.
func (t Token) Equals(s string) bool {
	if t.src == nil {
		return s == ""
	}

	return t.Length == len(s) &&
		string(t.src.Text[t.Offset:t.Offset+t.Length]) == s
}

// Is reports whether t has kind k and spans exactly s.
func (t Token) Is(k Kind, s string) bool { return t.Kind == k && t.Equals(s) }

// Source returns the file t was scanned from.
func (t Token) Source() *Source { return t.src }

// File returns the name of the file t was scanned from.
func (t Token) File() string {
	if t.src == nil {
		return ""
	}

	return t.src.Name
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool { return t.Kind == KindInvalid && t.src == nil }

// Substitute returns a copy of t whose text reads as s.
func (t Token) Substitute(s string) Token {
	t.Substitution = s

	return t
}

// PoolCapacity bounds the number of tokens one compile may produce,
// including every transitively included file.
const PoolCapacity = 32768 * 16

// Pool is the token buffer shared by every [Stream] of one compile.
type Pool struct {
	tokens []Token
	limit  int
}

// NewPool returns a pool holding at most limit tokens. A limit less than one
// selects [PoolCapacity].
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = PoolCapacity
	}

	return &Pool{limit: limit}
}

// Len returns the number of tokens in the pool.
func (p *Pool) Len() int { return len(p.tokens) }

// Cap returns the maximum number of tokens the pool accepts.
func (p *Pool) Cap() int { return p.limit }

func (p *Pool) push(t Token) bool {
	if len(p.tokens) >= p.limit {
		return false
	}

	p.tokens = append(p.tokens, t)

	return true
}

// Stream is a view of the tokens of one file inside a [Pool].
type Stream struct {
	pool  *Pool
	Name  string
	Start int
	Count int
}

// Len returns the number of tokens in s.
func (s Stream) Len() int { return s.Count }

// Pool returns the pool s views.
func (s Stream) Pool() *Pool { return s.pool }

// At returns the i-th token of s. Indexes outside the stream yield a
// [KindInvalid] sentinel that carries the line of the last token.
func (s Stream) At(i int) Token {
	if i >= 0 && i < s.Count {
		return s.pool.tokens[s.Start+i]
	}

	var eof Token
	if s.Count > 0 {
		last := s.pool.tokens[s.Start+s.Count-1]
		eof.src, eof.Line = last.src, last.Line
	}

	return eof
}

// All returns an iterator over the index and token of every token in s.
func (s Stream) All() iter.Seq2[int, Token] {
	return func(yield func(int, Token) bool) {
		for i := range s.Count {
			if !yield(i, s.pool.tokens[s.Start+i]) {
				return
			}
		}
	}
}

// String renders s one token per line as "<line> <kind> <text>".
func (s Stream) String() string {
	var sb strings.Builder

	for _, t := range s.All() {
		fmt.Fprintf(&sb, "%4d %-10s %s\n", t.Line, t.Kind, t.Text())
	}

	return sb.String()
}
