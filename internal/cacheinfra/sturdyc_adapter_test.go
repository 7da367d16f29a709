package cacheinfra

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-product-cache/cache"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{
			name:      "zero capacity",
			cfg:       Config{Capacity: 0, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "Capacity",
		},
		{
			name:      "zero shards",
			cfg:       Config{Capacity: 10, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "NumShards",
		},
		{
			name:      "zero ttl",
			cfg:       Config{Capacity: 10, NumShards: 1, TTL: 0, EvictionPercentage: 10},
			wantField: "TTL",
		},
		{
			name:      "eviction percentage too low",
			cfg:       Config{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 0},
			wantField: "EvictionPercentage",
		},
		{
			name:      "negative eviction interval",
			cfg:       Config{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 10, EvictionInterval: -time.Second},
			wantField: "EvictionInterval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var cfgErr *cache.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if opts := cfg.ToSturdycOptions(); len(opts) != 0 {
		t.Errorf("expected no options by default, got %d", len(opts))
	}

	cfg.EvictionInterval = time.Second
	if opts := cfg.ToSturdycOptions(); len(opts) != 1 {
		t.Errorf("expected 1 option, got %d", len(opts))
	}
}

func TestNewLocalTier_InvalidConfig(t *testing.T) {
	if _, err := NewLocalTier(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestLocalTier_SetGetDelete(t *testing.T) {
	tier, err := NewLocalTier(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create local tier: %v", err)
	}

	if _, ok := tier.Get("PRO_ITEM:1"); ok {
		t.Fatal("expected miss on empty tier")
	}

	tier.Set("PRO_ITEM:1", "shirt")
	got, ok := tier.Get("PRO_ITEM:1")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "shirt" {
		t.Errorf("expected shirt, got %v", got)
	}

	tier.Delete("PRO_ITEM:1")
	if _, ok := tier.Get("PRO_ITEM:1"); ok {
		t.Error("expected miss after Delete")
	}

	// deleting a missing key is a no-op
	tier.Delete("PRO_ITEM:1")
}

func TestLocalTier_EntriesExpire(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = 20 * time.Millisecond
	tier, err := NewLocalTier(cfg)
	if err != nil {
		t.Fatalf("failed to create local tier: %v", err)
	}

	tier.Set("PRO_ITEM:9", "v")
	time.Sleep(50 * time.Millisecond)

	if _, ok := tier.Get("PRO_ITEM:9"); ok {
		t.Error("expected entry to expire after TTL")
	}
}
