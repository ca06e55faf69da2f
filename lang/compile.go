package lang

import (
	"context"
	"log/slog"
)

// Result is the outcome of a successful compilation: the fully literal
// IR plus any validation warnings for the caller to surface.
type Result struct {
	Config   *Config
	Warnings []Warning
}

// Compile runs the full pipeline over the given source text: parse,
// build, resolve, unroll, expand, validate. Every stage fails fast; no
// partial result is ever returned. Invocations share no state, so
// concurrent calls for independent inputs are safe.
func Compile(ctx context.Context, source string, opts ...Option) (*Result, error) {
	o := applyOptions(opts...)

	o.logger.TraceContext(ctx, "parse start",
		slog.String("source", o.source),
		slog.Int("source_length", len(source)),
	)

	file, err := ParseString(source)
	if err != nil {
		return nil, err
	}

	cfg, err := buildConfig(file)
	if err != nil {
		return nil, err
	}

	o.logger.TraceContext(ctx, "build done",
		slog.String("config", cfg.Name),
		slog.Int("items", len(cfg.Items)),
		slog.Int("templates", len(cfg.Templates)),
	)

	r := &resolver{environ: o.environ}

	if err := r.resolveConfig(cfg); err != nil {
		return nil, err
	}

	if err := r.unrollConfig(cfg); err != nil {
		return nil, err
	}

	o.logger.TraceContext(ctx, "transform done",
		slog.Int("items", len(cfg.Items)),
	)

	if err := expandConfig(cfg); err != nil {
		return nil, err
	}

	warnings, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}

	o.logger.DebugContext(ctx, "compile done",
		slog.String("config", cfg.Name),
		slog.Int("warnings", len(warnings)),
	)

	return &Result{Config: cfg, Warnings: warnings}, nil
}

// Render serializes a validated configuration to target-engine text.
// Rendering is total and deterministic: the same IR always yields
// byte-identical output.
func Render(cfg *Config) string {
	return renderConfig(cfg)
}
