package host

import (
	"context"
	"strings"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/rt"
)

// Predefined errors (sentinel values).
var (
	ErrNoEntry   = lang.NewError("no entry point")
	ErrWorkspace = lang.NewError("failed to prepare build workspace")
	ErrToolchain = lang.NewError("go toolchain failed")
	ErrExecute   = lang.NewError("failed to execute program")
)

// Program is generated Go source ready to be built.
type Program struct {
	// Name is the DSL file the source was generated from.
	Name   string
	Source string
}

// HasEntry reports whether the program defines the entry function the host
// calls.
func (p Program) HasEntry() bool {
	return strings.Contains(p.Source, "\nfunc "+codegen.EntryFunc+"() {")
}

// Result describes one run of a program.
type Result struct {
	Stdout string
	Stderr string
	// Diagnostics holds the compiler errors of a failed build. Nothing is
	// run when it is non-empty.
	Diagnostics lang.Diagnostics
	ExitCode    int
	Cached      bool
}

// Failed reports whether the program did not build or did not exit cleanly.
func (r Result) Failed() bool {
	return len(r.Diagnostics) > 0 || r.ExitCode != rt.ExitOK
}

// ArenaExhausted reports whether the program stopped because the runtime
// arena ran out of space.
func (r Result) ArenaExhausted() bool {
	return r.ExitCode == rt.ExitArena
}

// Runner builds and runs programs. Errors are reserved for failures of the
// host itself; problems with the program are reported in the [Result].
type Runner interface {
	Run(ctx context.Context, prog Program) (Result, error)
}
