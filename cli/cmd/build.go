package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/log"
)

// Build translates a source file to a Go program.
type Build struct {
	Output  string `default:"-"                                   help:"Output file or '-' for stdout"        short:"o"`
	Package string `default:"${buildPackage}"                     help:"Package clause of the generated file"`
	Runtime string `default:"${buildRuntime}"                     help:"Import path of the runtime package"`
	Fold    bool   `help:"Fold constant integer expressions"                                                    negatable:""`
	Raw     bool   `help:"Skip gofmt of the generated source"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the build command.
func (b *Build) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out, err := compile(ctx, b.Source,
		codegen.WithPackage(b.Package),
		codegen.WithRuntimeImport(b.Runtime),
		codegen.WithConstantFolding(b.Fold),
		codegen.WithFormat(!b.Raw),
	)
	if err != nil {
		return err
	}

	if b.Output == stdinSource {
		_, err = fmt.Fprint(outputFrom(ctx).Stdout, out)

		return err
	}

	if err := os.WriteFile(b.Output, []byte(out), 0o600); err != nil {
		return ErrWriteOutput.With(slog.String("file", b.Output)).Wrap(err)
	}

	log.Default().DebugContext(ctx, "wrote program", slog.String("file", b.Output))

	return nil
}

// Tokens prints the token stream of a source file.
type Tokens struct {
	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the tokens command.
func (t *Tokens) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readSource(t.Source)
	if err != nil {
		return err
	}

	stream, err := lang.Tokenize(ctx, lang.NewPool(0), src, 0, len(src.Text))
	if err != nil {
		return lang.WrapError(err).With(slog.String("source", src.Name))
	}

	w := outputFrom(ctx).Stdout

	for _, tok := range stream.All() {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", tok.Line, tok.Kind, tok.Span()); err != nil {
			return err
		}
	}

	return nil
}

// AST prints the syntax tree of a source file.
type AST struct {
	Format string `default:"tree" enum:"tree,yaml,json" help:"Output format"                 short:"F"`
	Indent int    `default:"2"                          help:"Indent width for formatted output" short:"i"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	root, err := parse(ctx, a.Source)
	if err != nil {
		return err
	}

	w := outputFrom(ctx).Stdout

	switch a.Format {
	case "yaml":
		if err := root.FormatYAML(ctx, w, a.Indent); err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

	case "json":
		if err := root.FormatJSON(ctx, w, a.Indent); err != nil {
			return ErrJSONMarshal.Wrap(err)
		}

	default:
		return root.Format(ctx, w, a.Indent)
	}

	return nil
}
