package host

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ardnew/cflat/codegen"
	"github.com/ardnew/cflat/lang"
)

// compilerLine matches "<file>.go:<line>[:<col>]: <message>".
var compilerLine = regexp.MustCompile(`^(\S+?\.go):(\d+)(?::\d+)?: (.*)$`)

// runtimeQualifier matches references to the runtime package by name.
var runtimeQualifier = regexp.MustCompile(`\brt\.`)

// internalNames maps generated identifiers back to the names a user wrote.
//
//nolint:gochecknoglobals
var internalNames = strings.NewReplacer(
	"__seq", "seq",
	"__v", "'",
	codegen.MainFunc, "main",
)

func unmangle(s string) string {
	return internalNames.Replace(runtimeQualifier.ReplaceAllString(s, ""))
}

// Clean converts the output of a failed build in dir into diagnostics.
// Positions refer to the generated file; workspace paths and identifiers
// introduced by the generator are stripped from messages. Lines that do not
// name a position extend the previous diagnostic.
func Clean(dir string, output []byte) lang.Diagnostics {
	var diags lang.Diagnostics

	prefix := filepath.ToSlash(dir) + "/"

	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		text := strings.ReplaceAll(filepath.ToSlash(sc.Text()), prefix, "")

		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		m := compilerLine.FindStringSubmatch(text)
		if m == nil {
			if n := len(diags); n > 0 && strings.HasPrefix(text, "\t") {
				diags[n-1].Message += "\n" + unmangle(text)
			}

			continue
		}

		line, _ := strconv.Atoi(m[2])

		diags = append(diags, lang.Diagnostic{
			Position: lang.Position{File: filepath.Base(m[1]), Line: line},
			Message:  unmangle(m[3]),
		})
	}

	return diags
}
