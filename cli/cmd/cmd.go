package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
	"github.com/ardnew/cflat/log"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type (
	includePathKey struct{}
	outputKey      struct{}
)

// WithIncludePath returns a new context.Context carrying the directories
// searched for included files.
func WithIncludePath(ctx context.Context, dirs []string) context.Context {
	return context.WithValue(ctx, includePathKey{}, dirs)
}

func includePathFrom(ctx context.Context) []string {
	dirs, _ := ctx.Value(includePathKey{}).([]string)

	return dirs
}

// Output holds the writers commands print to.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// WithOutput returns a new context.Context whose commands write to out
// instead of the process's standard streams.
func WithOutput(ctx context.Context, out Output) context.Context {
	return context.WithValue(ctx, outputKey{}, out)
}

func outputFrom(ctx context.Context) Output {
	out, _ := ctx.Value(outputKey{}).(Output)
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}

	if out.Stderr == nil {
		out.Stderr = os.Stderr
	}

	return out
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// stdinName is the file name given to source read from stdin.
const stdinName = "<stdin>"

// readSource reads the source named by path, or stdin if path is "-".
func readSource(path string) (*lang.Source, error) {
	if path == stdinSource || path == "" {
		return lang.ReadSource(stdinName, os.Stdin)
	}

	return lang.ReadSourceFile(path)
}

// parse reads and parses the source named by path. Diagnostics are written
// to stderr and returned as an error.
func parse(ctx context.Context, path string) (*lang.Node, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}

	root, diags, err := lang.ParseSource(ctx, src,
		lang.WithLogger(log.Default()),
		lang.WithIncludePath(includePathFrom(ctx)...),
	)
	if err != nil {
		return nil, err
	}

	if len(diags) > 0 {
		return nil, report(ctx, src.Name, diags)
	}

	return root, nil
}

// compile parses the source named by path and generates its Go program.
func compile(ctx context.Context, path string, opts ...codegen.Option) (string, error) {
	root, err := parse(ctx, path)
	if err != nil {
		return "", err
	}

	out, diags := codegen.Generate(ctx, root,
		append([]codegen.Option{codegen.WithLogger(log.Default())}, opts...)...)
	if len(diags) > 0 {
		return "", report(ctx, root.File, diags)
	}

	log.Default().DebugContext(ctx, "generated program",
		slog.String("source", root.File),
		slog.Int("bytes", len(out)),
	)

	return out, nil
}

// report prints diags to stderr and returns an error summarizing them.
func report(ctx context.Context, name string, diags lang.Diagnostics) error {
	printDiagnostics(outputFrom(ctx).Stderr, diags)

	return ErrDiagnostics.With(
		slog.String("source", name),
		slog.Int("count", len(diags)),
	)
}
