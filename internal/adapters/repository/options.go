package repository

import "github.com/okian/riftelo/pkg/logger"

type options struct {
	logger     logger.Logger
	keyPrefix  string
	initSchema bool
}

func defaultOptions() options {
	return options{keyPrefix: "riftelo", initSchema: true}
}

// Option applies a configuration option to a Store backend.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithSchemaInit controls whether the Postgres backend creates its tables
// on startup.
func WithSchemaInit(enabled bool) Option {
	return func(o *options) { o.initSchema = enabled }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("repository")
	}
	return o
}
