package lang

import (
	"context"
	"log/slog"
	"path/filepath"
)

// ParseSource tokenizes and parses src. Lexical errors are reported as
// diagnostics; the returned error is non-nil only when ctx is done.
func ParseSource(ctx context.Context, src *Source, opts ...Option) (*Node, Diagnostics, error) {
	o := makeOptions(opts...)
	if o.pool == nil {
		o.pool = NewPool(0)
	}

	stream, err := Tokenize(ctx, o.pool, src, 0, len(src.Text))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}

		o.logger.DebugContext(ctx, "tokenize failed", slog.Any("error", WrapError(err)))

		return &Node{Kind: NodeAst, File: src.Name}, Diagnostics{diagnosticOf(err, src.Name)}, nil
	}

	o.logger.TraceContext(ctx, "tokenized",
		slog.String("file", src.Name),
		slog.Int("tokens", stream.Len()),
	)

	root, diags := parse(ctx, stream, o)

	return root, diags, ctx.Err()
}

// ParseFile reads, tokenizes, and parses the file at path. Errors reading
// the file itself are returned; all other problems are diagnostics.
func ParseFile(ctx context.Context, path string, opts ...Option) (*Node, Diagnostics, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	src, err := ReadSourceFile(path)
	if err != nil {
		return nil, nil, err
	}

	return ParseSource(ctx, src, opts...)
}
