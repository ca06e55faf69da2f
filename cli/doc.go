// Package cli contains the command line interface for halc.
//
// # Usage
//
// Compile a source file to HAProxy configuration text:
//
//	halc edge.halc -o haproxy.cfg
//	halc compile --env REGION=us-east-1 edge.halc
//	halc check edge.halc
//	halc inspect edge.halc
//	halc lua edge.halc --dir ./lua
//
// The compile command is the default, so the subcommand name may be
// omitted. Reading from stdin uses '-' as the source argument.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, stamp-milli, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorized pretty printing (default on for terminals)
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/halc/pprof)
//
// # Examples
//
//	# Debug logging with CPU profiling
//	halc --log-level=debug --pprof-mode=cpu edge.halc
//
//	# Recompile whenever the source changes
//	halc compile --watch edge.halc -o haproxy.cfg
package cli
