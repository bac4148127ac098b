package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ardnew/cflat/lang"
)

// colorful reports whether w is a terminal that accepts color.
func colorful(w io.Writer) bool {
	if color.NoColor {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printDiagnostics writes one diagnostic per line, with the position
// highlighted when w is a terminal.
func printDiagnostics(w io.Writer, diags lang.Diagnostics) {
	pos := color.New(color.FgCyan, color.Bold)
	msg := color.New(color.FgRed)

	if colorful(w) {
		pos.EnableColor()
		msg.EnableColor()
	} else {
		pos.DisableColor()
		msg.DisableColor()
	}

	for _, d := range diags {
		lines := strings.Split(d.Message, "\n")

		fmt.Fprintf(w, "%s: %s\n", pos.Sprint(d.Position.String()), msg.Sprint(lines[0]))

		for _, l := range lines[1:] {
			fmt.Fprintln(w, l)
		}
	}
}
