// Package host builds and runs generated programs.
//
// [GoRunner] lays out a throwaway module for each distinct program: the
// generated source, an entry file that hands the generated entry function
// to [rt.Run], and a copy of the runtime package. The module is built with
// the go command and the resulting executable is run with its output
// captured. Executables are kept in a bounded cache keyed by a hash of the
// generated source, so rerunning an unchanged program skips the build.
//
// Build failures are returned as diagnostics positioned in the generated
// file, never as errors.
package host
