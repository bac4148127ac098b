package rt

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes returned by [Run].
const (
	ExitOK    = 0
	ExitPanic = 1
	ExitArena = 3
)

// Run calls entry and returns the process exit code. A panic is reported
// on standard error; arena exhaustion gets its own code so hosts can tell it
// apart from other failures.
func Run(entry func()) (code int) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}

		fmt.Fprintln(os.Stderr, "cflat:", err)

		if errors.Is(err, ErrArenaExhausted) {
			code = ExitArena
		} else {
			code = ExitPanic
		}
	}()

	entry()

	return ExitOK
}
