// Package lang reads CFlat source: a small language for writing music as
// code, where note sequences are first-class values built from note-head
// glyphs and interval keywords.
//
// Source text is split into a [Stream] of tokens held in a shared [Pool],
// then parsed into a tree of [Node] values. Problems in the source are
// collected as [Diagnostics] rather than returned as Go errors, so one run
// reports as many of them as it can.
//
// # Grammar
//
// Informal EBNF:
//
//	File        → Declaration*
//	Declaration → Include | Struct | Method
//	Include     → 'include' String ';'
//	Struct      → 'struct' Identifier '{' (Identifier Identifier ';')* '}'
//	Method      → Identifier '::' '(' (Identifier Identifier ','?)* ')'
//	              ('->' Identifier)? '{' Statement* '}'
//	Statement   → (Identifier ':=' Expression | 'return' Expression? | Expression) ';'
//	Expression  → Operand (Operator Operand)*
//	Operand     → '(' Expression ')' | Keyword | NoteSeq | Variation
//	            | Constant | Placeholder | Path | '<<' Statement | Call
//	NoteSeq     → (NoteHead Operand)+
//	Variation   → Identifier '{' Expression (',' Expression)* '}'
//	Placeholder → NoteHead? '?' ('(' Expression ')' | Operand)?
//
// # Example
//
//	include "chords";
//
//	melody :: () -> seq {
//	    Using(cmaj);
//	    << ♩root ♩3rd ♪5th ♪octave;
//	}
//
//	main :: () {
//	    m := melody();
//	    print(m { ?, ?(5), ?, ♩? });
//	}
//
// Included files are looked up next to the including file, then in each
// directory listed in the CFLAT_PATH environment variable.
package lang
