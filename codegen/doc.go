// Package codegen translates a parsed CFlat tree into Go source that builds
// against the runtime package rt.
//
// Each method becomes a function and each struct a struct type. Note
// sequences become calls to the runtime's Notes constructor, and
// placeholders in a variation become indexed reads of the varied
// sequence:
//
//	m { ?, ♩?(5) }   →   Notes(m.At(0), WithDuration(WithPitch(m.At(1), 5), 0.25))
//
// A method returning seq collects every value yielded with "<<" into an
// implicit accumulator that it returns. Identifiers that would collide with
// Go keywords or runtime names are renamed consistently within the file.
package codegen
