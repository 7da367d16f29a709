package di

import (
	"net"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/cache"
	"github.com/goliatone/go-product-cache/catalog"
	"github.com/goliatone/go-product-cache/internal/cacheinfra"
	"github.com/goliatone/go-product-cache/productcache"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config gathers the settings of every component the container builds.
type Config struct {
	Redis       RedisConfig      `yaml:"redis"`
	Database    catalog.DBConfig `yaml:"database"`
	AutoMigrate bool             `yaml:"auto_migrate"`
	Cache       CacheConfig      `yaml:"cache"`
	Breaker     BreakerConfig    `yaml:"breaker"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Log         LogConfig        `yaml:"log"`
}

type RedisConfig struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	Password             string        `yaml:"password"`
	DB                   int           `yaml:"db"`
	PoolSize             int           `yaml:"pool_size"`
	DialTimeout          time.Duration `yaml:"dial_timeout"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	HealthCheckInterval  time.Duration `yaml:"health_check_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ConnectionTimeout    time.Duration `yaml:"connection_timeout"`
}

type CacheConfig struct {
	RemoteTTL           time.Duration `yaml:"remote_ttl"`
	NegativeTTL         time.Duration `yaml:"negative_ttl"`
	LockWait            time.Duration `yaml:"lock_wait"`
	LockLease           time.Duration `yaml:"lock_lease"`
	LockRetryInterval   time.Duration `yaml:"lock_retry_interval"`
	LocalEnabled        bool          `yaml:"local_enabled"`
	CoalesceRequests    bool          `yaml:"coalesce_requests"`
	InvalidationChannel string        `yaml:"invalidation_channel"`
	LocalCapacity       int           `yaml:"local_capacity"`
	LocalShards         int           `yaml:"local_shards"`
	LocalTTL            time.Duration `yaml:"local_ttl"`
	EvictionPercentage  int           `yaml:"eviction_percentage"`
	EvictionInterval    time.Duration `yaml:"eviction_interval"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig targets a local Redis and an in-memory sqlite database.
func DefaultConfig() Config {
	rc := cacheinfra.DefaultRedisConfig()
	cc := cache.DefaultConfig()
	bc := productcache.DefaultBreakerConfig()

	return Config{
		Redis: RedisConfig{
			Host:                 "localhost",
			Port:                 6379,
			DialTimeout:          rc.DialTimeout,
			ReadTimeout:          rc.ReadTimeout,
			WriteTimeout:         rc.WriteTimeout,
			HealthCheckInterval:  rc.HealthCheckInterval,
			MaxReconnectAttempts: rc.MaxReconnectAttempts,
			ConnectionTimeout:    rc.ConnectionTimeout,
		},
		Database:    catalog.DefaultDBConfig(),
		AutoMigrate: true,
		Cache: CacheConfig{
			RemoteTTL:           cc.RemoteTTL,
			NegativeTTL:         cc.NegativeTTL,
			LockWait:            cc.LockWait,
			LockLease:           cc.LockLease,
			LockRetryInterval:   cc.LockRetryInterval,
			LocalEnabled:        cc.LocalCacheEnabled,
			CoalesceRequests:    cc.CoalesceRequests,
			InvalidationChannel: cc.InvalidationChannel,
			LocalCapacity:       cc.Local.Capacity,
			LocalShards:         cc.Local.NumShards,
			LocalTTL:            cc.Local.TTL,
			EvictionPercentage:  cc.Local.EvictionPercentage,
			EvictionInterval:    cc.Local.EvictionInterval,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      bc.MaxRequests,
			Interval:         bc.Interval,
			Timeout:          bc.Timeout,
			FailureThreshold: bc.FailureThreshold,
			MinRequests:      bc.MinRequests,
		},
		Metrics: MetricsConfig{Enabled: true, Namespace: "product"},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadConfig starts from DefaultConfig, overlays the YAML file at path when
// path is not empty, then the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from REDIS_HOST, REDIS_PORT, REDIS_PASSWORD,
// DB_DRIVER, DB_DSN and LOG_LEVEL.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := getenv("REDIS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "REDIS_PORT must be a number").
				WithMetadata(map[string]any{"value": v})
		}
		c.Redis.Port = port
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the container level settings. Component settings are
// validated again by each component when it is built.
func (c Config) Validate() error {
	verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Redis),
			validation.Field(&c.Database),
			validation.Field(&c.Log),
		)
	}, "invalid configuration")
	if verr != nil {
		return verr
	}

	if err := c.CacheConfig().Validate(); err != nil {
		return err
	}
	if err := c.RedisConfig().Validate(); err != nil {
		return err
	}
	return nil
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Host, validation.Required),
		validation.Field(&r.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&r.DB, validation.Min(0)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(value any) error {
			_, err := zap.ParseAtomicLevel(value.(string))
			return err
		})),
	)
}

// RedisConfig returns the store settings.
func (c Config) RedisConfig() cacheinfra.RedisConfig {
	rc := cacheinfra.DefaultRedisConfig()
	rc.Addr = net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	rc.PoolSize = c.Redis.PoolSize
	if c.Redis.DialTimeout > 0 {
		rc.DialTimeout = c.Redis.DialTimeout
	}
	if c.Redis.ReadTimeout > 0 {
		rc.ReadTimeout = c.Redis.ReadTimeout
	}
	if c.Redis.WriteTimeout > 0 {
		rc.WriteTimeout = c.Redis.WriteTimeout
	}
	if c.Redis.HealthCheckInterval > 0 {
		rc.HealthCheckInterval = c.Redis.HealthCheckInterval
	}
	if c.Redis.MaxReconnectAttempts > 0 {
		rc.MaxReconnectAttempts = c.Redis.MaxReconnectAttempts
	}
	if c.Redis.ConnectionTimeout > 0 {
		rc.ConnectionTimeout = c.Redis.ConnectionTimeout
	}
	return rc
}

// CacheConfig returns the read path settings.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		RemoteTTL:           c.Cache.RemoteTTL,
		NegativeTTL:         c.Cache.NegativeTTL,
		LockWait:            c.Cache.LockWait,
		LockLease:           c.Cache.LockLease,
		LockRetryInterval:   c.Cache.LockRetryInterval,
		LocalCacheEnabled:   c.Cache.LocalEnabled,
		CoalesceRequests:    c.Cache.CoalesceRequests,
		InvalidationChannel: c.Cache.InvalidationChannel,
		Local: cache.LocalConfig{
			Capacity:           c.Cache.LocalCapacity,
			NumShards:          c.Cache.LocalShards,
			TTL:                c.Cache.LocalTTL,
			EvictionPercentage: c.Cache.EvictionPercentage,
			EvictionInterval:   c.Cache.EvictionInterval,
		},
	}
}

// BreakerConfig returns the repository breaker settings.
func (c Config) BreakerConfig() productcache.BreakerConfig {
	return productcache.BreakerConfig{
		Name:             productcache.DefaultBreakerConfig().Name,
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		Timeout:          c.Breaker.Timeout,
		FailureThreshold: c.Breaker.FailureThreshold,
		MinRequests:      c.Breaker.MinRequests,
	}
}
