// Package cli contains the command line interface for cflat.
//
// # Usage
//
// Running a source file is the default command:
//
//	cflat song.cb
//	cflat run -I lib song.cb
//
// The other commands translate, inspect, or rerun sources:
//
//	cflat build -o song.go song.cb
//	cflat tokens song.cb
//	cflat ast --format=yaml song.cb
//	cflat watch song.cb
//	cflat repl lib.cb
//
// # Configuration
//
// Flag values are read from the "config" mapping of config.yaml in the
// configuration directory ([pkg.ConfigDir]). The init command writes that
// file from the current flag values:
//
//	cflat --log-level=debug init
//
// Flag names with hyphens may be spelled with underscores. Command-line
// flags override config file values. Environment files named with
// --env-file are loaded before the command runs, so they may set
// CFLAT_PATH or the Go toolchain's environment.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output on terminals
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o cflat .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/cflat/pprof)
package cli
