package productcache

import (
	"github.com/goliatone/go-product-cache/cache"
	"go.uber.org/zap"
)

type options struct {
	local   cache.LocalCache
	logger  *zap.Logger
	metrics *Metrics
}

// Option customizes a Service, Invalidator, Subscriber or Writer.
type Option func(*options)

// WithLocalCache enables the in-process tier.
func WithLocalCache(local cache.LocalCache) Option {
	return func(o *options) {
		o.local = local
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records read path and invalidation counters.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
