package agent

import (
	"log/slog"

	"github.com/nao1215/seoaudit/internal/config"
)

type options struct {
	logger          *slog.Logger
	maxContentChars int
}

// Option configures an agent.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxContentChars limits the page content included in the audit prompt.
func WithMaxContentChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxContentChars = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:          slog.Default(),
		maxContentChars: config.DefaultMaxContentChars,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
