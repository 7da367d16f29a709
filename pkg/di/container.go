package di

import (
	"context"
	"errors"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/catalog"
	"github.com/goliatone/go-product-cache/internal/cacheinfra"
	"github.com/goliatone/go-product-cache/lock"
	"github.com/goliatone/go-product-cache/orders"
	"github.com/goliatone/go-product-cache/productcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Container wires the read path, the invalidation fan-out and the order
// service around one store connection and one database handle. Nothing is
// shared between containers; build one per process and Close it on shutdown.
type Container struct {
	config Config
	logger *zap.Logger

	db      *bun.DB
	ownsDB  bool
	store   *cacheinfra.RedisStore
	local   *cacheinfra.LocalTier
	locker  *lock.Locker
	catalog *catalog.Repository

	products    *productcache.Service
	invalidator *productcache.Invalidator
	subscriber  *productcache.Subscriber
	writer      *productcache.Writer
	orders      *orders.Service

	registry prometheus.Registerer
	metrics  *productcache.Metrics

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger replaces the logger built from Config.Log.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithDB uses db instead of opening Config.Database. The container does not
// close a database it did not open.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithRegisterer registers metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registry = reg
	}
}

// NewContainer builds every component from config. No connection is made
// until Start.
func NewContainer(config Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger, err := NewLogger(config.Log)
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	if err := c.build(); err != nil {
		if c.ownsDB && c.db != nil {
			_ = c.db.Close()
		}
		return nil, err
	}
	return c, nil
}

// NewContainerWithDefaults builds a container from LoadConfig without a file.
func NewContainerWithDefaults() (*Container, error) {
	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	return NewContainer(config)
}

func (c *Container) build() error {
	cacheCfg := c.config.CacheConfig()

	if c.config.Metrics.Enabled {
		if c.registry == nil {
			c.registry = prometheus.NewRegistry()
		}
		metrics, err := productcache.NewMetrics(c.config.Metrics.Namespace, c.registry)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register metrics")
		}
		c.metrics = metrics
	}

	store, err := cacheinfra.NewRedisStore(c.config.RedisConfig(),
		cacheinfra.WithLogger(c.logger.Named("redis")),
		cacheinfra.WithAlarmHandler(func(err error) {
			c.logger.Error("key-value store unreachable", zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}
	c.store = store

	if cacheCfg.LocalCacheEnabled {
		local, err := cacheinfra.NewLocalTier(cacheinfra.ConfigFromCache(cacheCfg.Local))
		if err != nil {
			return err
		}
		c.local = local
	}

	locker, err := lock.New(store, lock.Options{RetryInterval: cacheCfg.LockRetryInterval}, c.logger.Named("lock"))
	if err != nil {
		return err
	}
	c.locker = locker

	if c.db == nil {
		db, err := catalog.Open(c.config.Database)
		if err != nil {
			return err
		}
		c.db = db
		c.ownsDB = true
	}
	c.catalog = catalog.NewRepository(c.db, c.logger.Named("catalog"))

	var source productcache.ProductSource = c.catalog
	if c.config.Breaker.Enabled {
		source = productcache.NewBreakerSource(source, c.config.BreakerConfig(), c.logger.Named("breaker"))
	}

	opts := []productcache.Option{
		productcache.WithLogger(c.logger.Named("productcache")),
		productcache.WithMetrics(c.metrics),
	}
	if c.local != nil {
		opts = append(opts, productcache.WithLocalCache(c.local))
	}

	if c.products, err = productcache.NewService(store, locker, source, cacheCfg, opts...); err != nil {
		return err
	}
	if c.invalidator, err = productcache.NewInvalidator(store, cacheCfg.InvalidationChannel, opts...); err != nil {
		return err
	}
	if c.local != nil {
		if c.subscriber, err = productcache.NewSubscriber(store, cacheCfg.InvalidationChannel, opts...); err != nil {
			return err
		}
	}

	if c.writer, err = productcache.NewWriter(c.catalog, c.invalidator, opts...); err != nil {
		return err
	}

	c.orders = orders.NewService(c.db, c.catalog, c.invalidator, c.logger.Named("orders"))
	return nil
}

// Start connects to the store, creates the schema when AutoMigrate is set,
// launches the connection monitor and subscribes to product updates.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return goerrors.New("container is closed", goerrors.CategoryConflict)
	}
	if c.started {
		return nil
	}

	if err := c.store.Connect(ctx); err != nil {
		return err
	}

	if c.config.AutoMigrate {
		if err := catalog.CreateSchema(ctx, c.db); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.store.Start(runCtx)

	if c.subscriber != nil {
		if err := c.subscriber.Start(runCtx); err != nil {
			cancel()
			return err
		}
	}

	c.cancel = cancel
	c.started = true
	c.logger.Info("container started",
		zap.Bool("local_cache", c.local != nil),
		zap.Bool("breaker", c.config.Breaker.Enabled),
	)
	return nil
}

// Close stops the subscriber and the monitor, then releases the store and
// the database. It is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}
	if c.cancel != nil {
		c.cancel()
	}
	errs = append(errs, c.store.Close())
	if c.ownsDB {
		errs = append(errs, c.db.Close())
	}
	_ = c.logger.Sync()

	return errors.Join(errs...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) DB() *bun.DB {
	return c.db
}

// Store returns the shared key-value store.
func (c *Container) Store() *cacheinfra.RedisStore {
	return c.store
}

// LocalCache returns the in-process tier, nil when it is disabled.
func (c *Container) LocalCache() *cacheinfra.LocalTier {
	return c.local
}

func (c *Container) Locker() *lock.Locker {
	return c.locker
}

func (c *Container) Catalog() *catalog.Repository {
	return c.catalog
}

func (c *Container) Products() *productcache.Service {
	return c.products
}

func (c *Container) Invalidator() *productcache.Invalidator {
	return c.invalidator
}

// Writer creates products and invalidates their cached detail.
func (c *Container) Writer() *productcache.Writer {
	return c.writer
}

func (c *Container) Orders() *orders.Service {
	return c.orders
}

// Metrics returns the read path counters, nil when metrics are disabled.
func (c *Container) Metrics() *productcache.Metrics {
	return c.metrics
}

// Registerer returns where the metrics were registered.
func (c *Container) Registerer() prometheus.Registerer {
	return c.registry
}
