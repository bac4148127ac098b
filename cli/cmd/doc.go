// Package cmd implements the cflat subcommands.
//
// Each command reads a CFlat source file (or stdin when the path is "-"),
// parses it with the include path stored in the command context, and
// reports problems as diagnostics on stderr. Commands that produce a
// program hand it to a [host.Runner].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"
)
