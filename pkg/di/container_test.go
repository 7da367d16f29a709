package di

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-product-cache/cache"
	"github.com/goliatone/go-product-cache/pkg/testsupport"
	"github.com/goliatone/go-product-cache/productcache"
)

func testConfig(t testing.TB, mr *miniredis.Miniredis) Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("invalid miniredis address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("invalid miniredis port: %v", err)
	}

	config := DefaultConfig()
	config.Redis.Host = host
	config.Redis.Port = port
	config.Redis.DialTimeout = 200 * time.Millisecond
	config.Redis.ReadTimeout = 200 * time.Millisecond
	config.Redis.WriteTimeout = 200 * time.Millisecond
	config.Redis.HealthCheckInterval = 20 * time.Millisecond
	config.Log.Level = "error"
	return config
}

func startContainer(t testing.TB, config Config, opts ...Option) *Container {
	t.Helper()

	container, err := NewContainer(config, opts...)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	if err := container.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return container
}

func TestNewContainer(t *testing.T) {
	mr := testsupport.NewMiniredis(t)
	config := testConfig(t, mr)

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Products() == nil {
		t.Error("Container should have a product service")
	}
	if container.Invalidator() == nil {
		t.Error("Container should have an invalidator")
	}
	if container.Orders() == nil {
		t.Error("Container should have an order service")
	}
	if container.LocalCache() == nil {
		t.Error("Local tier is enabled by default")
	}
	if container.Metrics() == nil {
		t.Error("Metrics are enabled by default")
	}

	storedConfig := container.Config()
	if storedConfig.Redis.Port != config.Redis.Port {
		t.Errorf("Expected port %d, got %d", config.Redis.Port, storedConfig.Redis.Port)
	}
	if storedConfig.Cache.LockWait != time.Second {
		t.Errorf("Expected lock wait 1s, got %v", storedConfig.Cache.LockWait)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	mr := testsupport.NewMiniredis(t)

	cases := map[string]func(*Config){
		"missing host":      func(c *Config) { c.Redis.Host = "" },
		"bad port":          func(c *Config) { c.Redis.Port = 70000 },
		"unknown driver":    func(c *Config) { c.Database.Driver = "oracle" },
		"zero lock lease":   func(c *Config) { c.Cache.LockLease = 0 },
		"bad local tier":    func(c *Config) { c.Cache.LocalCapacity = 0 },
		"unknown log level": func(c *Config) { c.Log.Level = "loud" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := testConfig(t, mr)
			mutate(&config)

			if _, err := NewContainer(config); err == nil {
				t.Error("NewContainer() should fail with invalid config")
			}
		})
	}
}

func TestNewContainer_LocalTierDisabled(t *testing.T) {
	mr := testsupport.NewMiniredis(t)
	config := testConfig(t, mr)
	config.Cache.LocalEnabled = false
	config.Cache.LocalCapacity = 0

	container := startContainer(t, config)
	if container.LocalCache() != nil {
		t.Error("Local tier should be nil when disabled")
	}
}

func TestContainer_StartFailsWithoutStore(t *testing.T) {
	mr := testsupport.NewMiniredis(t)
	config := testConfig(t, mr)
	config.Redis.MaxReconnectAttempts = 2
	mr.Close()

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	err = container.Start(context.Background())
	if err == nil {
		t.Fatal("Start() should fail when the store is unreachable")
	}
	if !cache.IsStoreUnavailable(err) {
		t.Errorf("Expected a store unavailable error, got %v", err)
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	mr := testsupport.NewMiniredis(t)
	container, err := NewContainer(testConfig(t, mr))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	ctx := context.Background()
	if err := container.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := container.Start(ctx); err != nil {
		t.Errorf("second Start() should be a no-op, got %v", err)
	}

	if err := container.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := container.Close(); err != nil {
		t.Errorf("second Close() should be a no-op, got %v", err)
	}
	if err := container.Start(ctx); err == nil {
		t.Error("Start() after Close() should fail")
	}
}

func TestContainer_IndependentInstances(t *testing.T) {
	mr := testsupport.NewMiniredis(t)

	a := startContainer(t, testConfig(t, mr))
	b := startContainer(t, testConfig(t, mr))

	if a.Store() == b.Store() {
		t.Error("containers must not share a store")
	}
	if a.LocalCache() == b.LocalCache() {
		t.Error("containers must not share a local tier")
	}
	if a.Registerer() == b.Registerer() {
		t.Error("containers must not share a metrics registry")
	}
}

func TestContainer_WriterDropsNegativeEntry(t *testing.T) {
	mr := testsupport.NewMiniredis(t)
	container := startContainer(t, testConfig(t, mr))
	ctx := context.Background()

	if _, err := container.Products().GetProductDetail(ctx, 1); !cache.IsNotFound(err) {
		t.Fatalf("expected not found before the product exists, got %v", err)
	}
	if !mr.Exists("PRO_ITEM:1") {
		t.Fatal("expected the negative marker to be stored")
	}

	product, err := container.Writer().CreateProduct(ctx, testsupport.CatalogSeed(t)[0])
	if err != nil {
		t.Fatalf("CreateProduct() failed: %v", err)
	}
	if product.ID != 1 {
		t.Fatalf("expected the first product to get id 1, got %d", product.ID)
	}

	res, err := container.Products().GetProductDetail(ctx, product.ID)
	if err != nil {
		t.Fatalf("expected the new product to be served, got %v", err)
	}
	if res.Source != productcache.SourceDatabase {
		t.Errorf("expected a rebuild from the database, got %s", res.Source)
	}
	if res.Data.Name != product.Name {
		t.Errorf("expected %q, got %q", product.Name, res.Data.Name)
	}
}
