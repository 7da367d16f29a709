package cacheinfra

import (
	"time"

	"github.com/goliatone/go-product-cache/cache"
)

// RedisConfig holds connection and reconnect settings of the shared store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	// MaxRetries is handed to go-redis for single commands. -1 disables retries.
	MaxRetries int

	// HealthCheckInterval is how often the monitor pings the server.
	HealthCheckInterval time.Duration

	// ReconnectStep is multiplied by the attempt number to get the reconnect delay.
	ReconnectStep time.Duration

	// MaxReconnectDelay caps the delay between two reconnect attempts.
	MaxReconnectDelay time.Duration

	// MaxReconnectAttempts is the number of attempts before the store is
	// marked degraded and the monitor stops.
	MaxReconnectAttempts int

	// ConnectionTimeout raises the connection alarm when no reconnect
	// succeeded within this window.
	ConnectionTimeout time.Duration
}

// DefaultRedisConfig returns the reconnect policy the store ships with.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                 "localhost:6379",
		DialTimeout:          2 * time.Second,
		ReadTimeout:          time.Second,
		WriteTimeout:         time.Second,
		MaxRetries:           1,
		HealthCheckInterval:  time.Second,
		ReconnectStep:        100 * time.Millisecond,
		MaxReconnectDelay:    3 * time.Second,
		MaxReconnectAttempts: 10,
		ConnectionTimeout:    10 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &cache.ConfigError{Field: "Addr", Message: "cannot be empty"}
	}
	if c.DB < 0 {
		return &cache.ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.DialTimeout <= 0 {
		return &cache.ConfigError{Field: "DialTimeout", Message: "must be greater than 0"}
	}
	if c.HealthCheckInterval <= 0 {
		return &cache.ConfigError{Field: "HealthCheckInterval", Message: "must be greater than 0"}
	}
	if c.ReconnectStep <= 0 {
		return &cache.ConfigError{Field: "ReconnectStep", Message: "must be greater than 0"}
	}
	if c.MaxReconnectDelay < c.ReconnectStep {
		return &cache.ConfigError{Field: "MaxReconnectDelay", Message: "must not be lower than ReconnectStep"}
	}
	if c.MaxReconnectAttempts <= 0 {
		return &cache.ConfigError{Field: "MaxReconnectAttempts", Message: "must be greater than 0"}
	}
	if c.ConnectionTimeout <= 0 {
		return &cache.ConfigError{Field: "ConnectionTimeout", Message: "must be greater than 0"}
	}
	return nil
}

// ReconnectDelay returns min(attempt*step, max).
func ReconnectDelay(attempt int, step, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(attempt) * step
	if delay > max {
		return max
	}
	return delay
}
