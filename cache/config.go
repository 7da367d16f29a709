package cache

import (
	"time"
)

// Config holds the read path settings shared by every instance.
type Config struct {
	// RemoteTTL is applied to positive entries in the shared store. Zero keeps
	// entries until they are invalidated.
	RemoteTTL time.Duration

	// NegativeTTL bounds how long a "not found" marker is served.
	NegativeTTL time.Duration

	// LockWait is how long a reader polls for the rebuild lock before giving up.
	LockWait time.Duration

	// LockLease is the expiry set on the rebuild lock.
	LockLease time.Duration

	// LockRetryInterval is the pause between two lock attempts.
	LockRetryInterval time.Duration

	// LocalCacheEnabled turns the in-process tier on. Deployments with more than
	// one instance must also run the invalidation subscriber.
	LocalCacheEnabled bool

	// CoalesceRequests merges concurrent misses for the same id inside one process.
	CoalesceRequests bool

	// InvalidationChannel is the pub/sub channel carrying product updates.
	InvalidationChannel string

	Local LocalConfig
}

// LocalConfig mirrors the options of the in-process tier.
type LocalConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RemoteTTL:           0,
		NegativeTTL:         time.Minute,
		LockWait:            time.Second,
		LockLease:           5 * time.Second,
		LockRetryInterval:   100 * time.Millisecond,
		LocalCacheEnabled:   true,
		CoalesceRequests:    true,
		InvalidationChannel: DefaultInvalidationChannel,
		Local: LocalConfig{
			Capacity:           10000,
			NumShards:          256,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		},
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.RemoteTTL < 0 {
		return &ConfigError{Field: "RemoteTTL", Message: "must be non-negative"}
	}
	if c.NegativeTTL <= 0 {
		return &ConfigError{Field: "NegativeTTL", Message: "must be greater than 0"}
	}
	if c.LockWait <= 0 {
		return &ConfigError{Field: "LockWait", Message: "must be greater than 0"}
	}
	if c.LockLease <= 0 {
		return &ConfigError{Field: "LockLease", Message: "must be greater than 0"}
	}
	if c.LockRetryInterval <= 0 {
		return &ConfigError{Field: "LockRetryInterval", Message: "must be greater than 0"}
	}
	if c.InvalidationChannel == "" {
		return &ConfigError{Field: "InvalidationChannel", Message: "cannot be empty"}
	}
	if c.LocalCacheEnabled {
		return c.Local.Validate()
	}
	return nil
}

// Validate checks the in-process tier options.
func (c LocalConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Local.Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "Local.NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "Local.TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "Local.EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "Local.EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
