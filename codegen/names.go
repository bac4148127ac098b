package codegen

import (
	"go/token"
	"maps"
	"slices"
	"strings"
)

// Names the generator emits itself.
const (
	EntryFunc  = "entry"
	MainFunc   = "cflatMain"
	seqVar     = "__seq"
	primeInfix = "__v"
)

// runtimeNames lists the exported identifiers of the runtime package. The
// runtime is dot-imported, so user identifiers must not collide with them.
//
//nolint:gochecknoglobals
var runtimeNames = map[string]bool{
	"Arena": true, "ArenaError": true, "CMaj": true, "DMaj": true,
	"EMaj": true, "FMaj": true, "GMaj": true, "AMaj": true, "BMaj": true,
	"CMin": true, "DMin": true, "EMin": true, "FMin": true, "GMin": true,
	"AMin": true, "BMin": true, "CurrentScale": true, "CurrentSignature": true,
	"DefaultArena": true, "DefaultArenaCapacity": true,
	"DefaultSeqCapacity": true, "DefaultSignatureBottom": true,
	"DefaultSignatureTop": true, "DefaultTempo": true,
	"ErrArenaExhausted": true, "ExitArena": true, "ExitOK": true,
	"ExitPanic": true, "Integer": true, "Item": true, "N": true,
	"NewArena": true, "NewSeq": true, "NewSeqIn": true, "Note": true,
	"Notes": true, "Print": true, "Region": true, "Reset": true,
	"ResetDefaultArena": true, "Run": true, "Scale": true, "ScaleOf": true,
	"Seq": true, "SetOutput": true, "SetTempo": true, "Signature": true,
	"Sources": true, "Tempo": true, "Using": true, "WithDuration": true,
	"WithPitch": true,
}

// predeclared lists the Go predeclared identifiers generated code relies on.
//
//nolint:gochecknoglobals
var predeclared = map[string]bool{
	"bool": true, "false": true, "float32": true, "float64": true,
	"int": true, "int16": true, "int32": true, "int64": true, "nil": true,
	"string": true, "true": true, "_": true, "init": true, "main": true,
	EntryFunc: true, MainFunc: true, seqVar: true,
}

// Builtins lists the methods every program can call without declaring them.
//
//nolint:gochecknoglobals
var Builtins = []string{"print", "signature", "tempo", "using"}

// TypeNames returns the sorted names of the built-in types.
func TypeNames() []string { return slices.Sorted(maps.Keys(builtinTypes)) }

// builtinTypes maps language type names to Go types.
//
//nolint:gochecknoglobals
var builtinTypes = map[string]string{
	"f32":    "float32",
	"f64":    "float64",
	"i16":    "int16",
	"i32":    "int32",
	"i64":    "int64",
	"seq":    "*Seq",
	"note":   "Note",
	"scale":  "Scale",
	"string": "string",
	"bool":   "bool",
}

// sanitize rewrites the characters identifiers may hold that Go does not
// accept.
func sanitize(name string) string {
	return strings.ReplaceAll(name, "'", primeInfix)
}

// reserved reports whether name cannot be used as-is for a user
// declaration.
func reserved(name string) bool {
	return token.IsKeyword(name) || runtimeNames[name] || predeclared[name]
}

// fieldName returns the Go name of a struct field. Fields never collide with
// package-level names, only with keywords.
func fieldName(name string) string {
	name = sanitize(name)
	if token.IsKeyword(name) {
		return name + "_"
	}

	return name
}

// scope maps the locals and parameters of one method to Go names.
type scope struct {
	names    map[string]string
	declared map[string]bool
	seq      bool
}

func newScope(seq bool) *scope {
	return &scope{
		names:    map[string]string{},
		declared: map[string]bool{},
		seq:      seq,
	}
}
