package cache

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LockWait != time.Second {
		t.Errorf("expected LockWait to be 1s, got %v", cfg.LockWait)
	}
	if cfg.LockLease != 5*time.Second {
		t.Errorf("expected LockLease to be 5s, got %v", cfg.LockLease)
	}
	if cfg.LockRetryInterval != 100*time.Millisecond {
		t.Errorf("expected LockRetryInterval to be 100ms, got %v", cfg.LockRetryInterval)
	}
	if cfg.RemoteTTL != 0 {
		t.Errorf("expected RemoteTTL to be 0, got %v", cfg.RemoteTTL)
	}
	if cfg.Local.TTL != 5*time.Minute {
		t.Errorf("expected Local.TTL to be 5 minutes, got %v", cfg.Local.TTL)
	}
	if cfg.InvalidationChannel != "product_update" {
		t.Errorf("expected product_update channel, got %s", cfg.InvalidationChannel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"negative remote ttl", func(c *Config) { c.RemoteTTL = -1 }, "RemoteTTL"},
		{"zero negative ttl", func(c *Config) { c.NegativeTTL = 0 }, "NegativeTTL"},
		{"zero lock wait", func(c *Config) { c.LockWait = 0 }, "LockWait"},
		{"zero lock lease", func(c *Config) { c.LockLease = 0 }, "LockLease"},
		{"zero retry interval", func(c *Config) { c.LockRetryInterval = 0 }, "LockRetryInterval"},
		{"empty channel", func(c *Config) { c.InvalidationChannel = "" }, "InvalidationChannel"},
		{"zero capacity", func(c *Config) { c.Local.Capacity = 0 }, "Local.Capacity"},
		{"zero shards", func(c *Config) { c.Local.NumShards = 0 }, "Local.NumShards"},
		{"zero local ttl", func(c *Config) { c.Local.TTL = 0 }, "Local.TTL"},
		{"eviction over 100", func(c *Config) { c.Local.EvictionPercentage = 101 }, "Local.EvictionPercentage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ValidateSkipsLocalWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LocalCacheEnabled = false
	cfg.Local.Capacity = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected local settings to be ignored, got %v", err)
	}
}
