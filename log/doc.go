// Package log wraps [log/slog] with functional configuration, a trace
// level, and colorized handlers for terminals.
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("compiled", slog.String("file", "song.cb"))
//
// Colors are only written when the destination is a terminal, so the pretty
// handlers remain usable with files and buffers.
//
// Methods without a context argument use [DefaultContextProvider].
package log
