package lang

import (
	"strings"

	"github.com/halc-lang/halc/log"
)

// options configures a single [Compile] invocation. The core performs no
// ambient environment access: callers that want env() lookups to see the
// process environment must inject it with [WithEnviron].
type options struct {
	environ map[string]string
	source  string
	logger  log.Logger
}

// Option configures compilation behavior.
type Option func(*options)

// WithEnviron sets the environment visible to env() expressions, as
// "KEY=VALUE" entries. Without it, every variable is unset.
func WithEnviron(environ []string) Option {
	return func(o *options) {
		o.environ = make(map[string]string, len(environ))

		for _, entry := range environ {
			if key, value, ok := strings.Cut(entry, "="); ok {
				o.environ[key] = value
			}
		}
	}
}

// WithSourceName sets the input name used in diagnostics, typically the
// source file path.
func WithSourceName(name string) Option {
	return func(o *options) {
		o.source = name
	}
}

// WithLogger sets the structured logger for trace-level debugging of the
// pipeline. If not provided, the logger is zero-valued and all logging
// is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts ...Option) options {
	o := options{source: "<input>"}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
