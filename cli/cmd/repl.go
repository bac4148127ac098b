package cmd

import (
	"context"
	"io"
	"os"

	"github.com/ardnew/cflat/cli/cmd/repl"
	"github.com/ardnew/cflat/log"
)

// Repl starts an interactive session.
type Repl struct {
	Host hostFlags `embed:""`

	Source string `arg:"" help:"Source file whose declarations seed the session." name:"source" optional:"" type:"existingfile"`
}

// Run executes the repl command.
func (c *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	r, err := c.Host.open(ctx, false)
	if err != nil {
		return err
	}
	defer r.Close()

	var reader io.Reader

	if c.Source != "" {
		f, err := os.Open(c.Source)
		if err != nil {
			return err
		}
		defer f.Close()

		reader = f
	}

	var cacheDir string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, reader, cacheDir, log.Default(),
		repl.WithRunner(r),
		repl.WithIncludePath(includePathFrom(ctx)...),
		repl.WithName(c.Source),
	)
}
