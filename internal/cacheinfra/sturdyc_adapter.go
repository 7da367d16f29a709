package cacheinfra

import (
	"time"

	"github.com/goliatone/go-product-cache/cache"
	"github.com/viccon/sturdyc"
)

var _ cache.LocalCache = (*LocalTier)(nil)

// Config holds the configuration for the sturdyc backed local tier.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is applied to every entry of the tier. sturdyc expires per client,
	// so callers cannot choose a TTL per key.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return ConfigFromCache(cache.DefaultConfig().Local)
}

// ConfigFromCache converts the public tier settings.
func ConfigFromCache(c cache.LocalConfig) Config {
	return Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &cache.ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &cache.ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &cache.ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &cache.ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &cache.ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// LocalTier is the in-process cache tier backed by a sturdyc client.
type LocalTier struct {
	client *sturdyc.Client[any]
}

// NewLocalTier validates cfg and builds the sturdyc client.
func NewLocalTier(cfg Config) (*LocalTier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &LocalTier{client: client}, nil
}

// Get returns the entry stored under key, if it has not expired.
func (l *LocalTier) Get(key string) (any, bool) {
	return l.client.Get(key)
}

// Set stores value under key for the configured TTL.
func (l *LocalTier) Set(key string, value any) {
	l.client.Set(key, value)
}

// Delete removes a single entry.
func (l *LocalTier) Delete(key string) {
	l.client.Delete(key)
}

// Size reports the number of entries currently held.
func (l *LocalTier) Size() int {
	return l.client.Size()
}
