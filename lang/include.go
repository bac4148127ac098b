package lang

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ardnew/mung"

	"github.com/ardnew/cflat/pkg"
)

// SearchPath returns the directories searched for included files: extra
// first, then the entries of the CFLAT_PATH environment variable. Duplicate
// and non-directory entries are dropped.
func SearchPath(extra ...string) []string {
	list := mung.Make(
		mung.WithSubjectItems(os.Getenv(pkg.EnvPrefix()+"PATH")),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(extra...),
		mung.WithFilter(isDir),
	).String()

	return filepath.SplitList(list)
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// includeCandidates lists the paths name may refer to, in search order. The
// directory of the including file comes first.
func (p *parser) includeCandidates(name string) []string {
	if filepath.IsAbs(name) {
		return []string{name}
	}

	dir := "."
	if abs, err := filepath.Abs(p.in.Name); err == nil && p.in.Name != "" {
		dir = filepath.Dir(abs)
	}

	cand := []string{filepath.Join(dir, name)}
	for _, d := range SearchPath(p.opts.includePath...) {
		cand = append(cand, filepath.Join(d, name))
	}

	return cand
}

func resolveInclude(cand []string) (string, bool) {
	for _, c := range cand {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, true
			}

			return c, true
		}
	}

	return "", false
}

// include parses `include "name";`, then tokenizes and parses the named file
// and moves its declarations under an Include node.
func (p *parser) include() (*Node, match) {
	if !p.peek(0).Is(KindIdentifier, "include") {
		return nil, noMatch
	}

	p.next()

	name := p.next()
	if name.Kind != KindString {
		p.errorf("String expected.")

		return nil, failed
	}

	if p.peek(0).Kind != KindSemicolon {
		p.errorf("';' expected.")

		return nil, failed
	}

	p.next()

	cand := p.includeCandidates(name.Text() + pkg.SourceExt)

	path, ok := resolveInclude(cand)
	if !ok {
		p.errorAt(name, "Could not include: '%s'. File not found.", cand[0])

		return nil, failed
	}

	if p.opts.active[path] {
		p.errorAt(name, "Include cycle: '%s'.", path)

		return nil, failed
	}

	p.opts.logger.DebugContext(p.ctx, "include",
		slog.String("file", p.in.Name),
		slog.String("path", path),
	)

	n := NewNode(NodeInclude, name)
	n.File = path

	src, err := ReadSourceFile(path)
	if err != nil {
		p.diags = append(p.diags, diagnosticOf(err, path))

		return n, matched
	}

	stream, err := Tokenize(p.ctx, p.opts.pool, src, 0, len(src.Text))
	if err != nil {
		p.diags = append(p.diags, diagnosticOf(err, path))

		return n, matched
	}

	sub, diags := parse(p.ctx, stream, p.opts)
	p.diags.Append(diags)
	n.Adopt(sub)

	return n, matched
}
