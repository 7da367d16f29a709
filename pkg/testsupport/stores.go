package testsupport

import (
	"context"
	_ "embed"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-product-cache/catalog"
	"github.com/goliatone/go-product-cache/internal/cacheinfra"
	"github.com/uptrace/bun"
)

//go:embed testdata/catalog_seed.json
var catalogSeed []byte

// RedisConfig returns a store configuration pointed at addr with short
// timeouts suited to tests.
func RedisConfig(addr string) cacheinfra.RedisConfig {
	cfg := cacheinfra.DefaultRedisConfig()
	cfg.Addr = addr
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.ReadTimeout = 200 * time.Millisecond
	cfg.WriteTimeout = 200 * time.Millisecond
	cfg.HealthCheckInterval = 20 * time.Millisecond
	cfg.ReconnectStep = 5 * time.Millisecond
	cfg.MaxReconnectDelay = 20 * time.Millisecond
	return cfg
}

// NewMiniredis starts an in-process Redis server stopped at the end of the test.
func NewMiniredis(t testing.TB) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// NewRedisStore connects a RedisStore to mr and closes it at the end of the test.
func NewRedisStore(t testing.TB, mr *miniredis.Miniredis) *cacheinfra.RedisStore {
	t.Helper()

	store, err := cacheinfra.NewRedisStore(RedisConfig(mr.Addr()))
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewLocalTier builds an in-process tier with default settings.
func NewLocalTier(t testing.TB) *cacheinfra.LocalTier {
	t.Helper()

	tier, err := cacheinfra.NewLocalTier(cacheinfra.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create local tier: %v", err)
	}
	return tier
}

// NewDB opens a private in-memory sqlite database with the catalog schema.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := catalog.Open(catalog.DefaultDBConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := catalog.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// CatalogSeed returns the products of the shared seed fixture.
func CatalogSeed(t testing.TB) []catalog.CreateProductInput {
	t.Helper()

	var inputs []catalog.CreateProductInput
	if err := json.Unmarshal(catalogSeed, &inputs); err != nil {
		t.Fatalf("failed to decode catalog seed: %v", err)
	}
	return inputs
}

// SeedCatalog stores the seed fixture and returns the created products in
// fixture order: Classic Tee (two variants), Canvas Tote (no variants) and
// Desk Lamp (one variant without options).
func SeedCatalog(t testing.TB, repo *catalog.Repository) []*catalog.Product {
	t.Helper()

	var products []*catalog.Product
	for _, in := range CatalogSeed(t) {
		product, err := repo.CreateProduct(context.Background(), in)
		if err != nil {
			t.Fatalf("failed to seed product %q: %v", in.Name, err)
		}
		products = append(products, product)
	}
	return products
}
