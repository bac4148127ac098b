// Package rt is the runtime of generated CFlat programs: notes, scales,
// arena-backed note sequences, and the ambient playback state.
//
// Generated code dot-imports this package, so its exported names read like
// language builtins. The package only depends on the standard library since
// its sources are copied into every program built by the host.
package rt
