// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// The package offers configurable levels, timestamp layouts, caller
// information, and output formats, all applied with functional options
// at logger creation time:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithCaller(true))
//	logger.Info("compilation finished", slog.Int("warnings", n))
//
// The zero value [Logger] is valid and discards every message, so
// library code can accept a Logger without nil checks.
//
// # Default logger
//
// Package-level functions ([Info], [Error], and friends) write through a
// process-wide default logger, reconfigured with [Config]. The command
// line layer uses this to apply --log-* flags as a side effect of flag
// parsing, early enough to affect diagnostics emitted while parsing the
// remaining flags.
//
// # Formats
//
// The text format is colorized by default when pretty printing is
// enabled; [FormatJSON] emits one JSON object per record and ignores the
// pretty setting.
package log
