//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

// Version is the semantic version of the cflat module embedded at build time.
//
//go:embed VERSION
var version string

// Version returns the embedded semantic version without surrounding space.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the canonical command and module identifier used across the
	// project. It appears in help text, default config paths, and the
	// environment variable prefix.
	Name = "cflat"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Compiler for the CFlat note-sequence language"
	// SourceExt is the file extension of CFlat source files, including the dot.
	SourceExt = ".cb"
)

// EnvPrefix returns the prefix of environment variables read by cflat.
func EnvPrefix() string { return strings.ToUpper(Name) + "_" }

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	// Name is the author's preferred name or handle.
	Name string
	// Email is the author's contact email address.
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
