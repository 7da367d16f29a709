package productcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-product-cache/cache"
	"github.com/goliatone/go-product-cache/productcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	f := newFixture(t)
	failing := &countingSource{err: errors.New("too many connections")}

	cfg := productcache.DefaultBreakerConfig()
	cfg.MinRequests = 2
	cfg.FailureThreshold = 1
	cfg.Timeout = time.Minute
	source := productcache.NewBreakerSource(failing, cfg, nil)

	svc := newService(t, f.store, source, testConfig())
	id := f.products[0].ID

	for i := 0; i < 2; i++ {
		_, err := svc.GetProductDetail(context.Background(), id)
		require.Error(t, err)
		assert.True(t, cache.IsRepositoryError(err))
	}
	require.Equal(t, int64(2), failing.calls.Load())

	_, err := svc.GetProductDetail(context.Background(), id)
	require.Error(t, err)
	assert.True(t, cache.IsRepositoryError(err))
	assert.Equal(t, int64(2), failing.calls.Load(), "open breaker short-circuits the query")
	assert.False(t, f.mr.Exists(cache.ProductLockKey(id)))
}

func TestBreakerSource_PassesThroughResults(t *testing.T) {
	f := newFixture(t)
	source := productcache.NewBreakerSource(f.repo, productcache.DefaultBreakerConfig(), nil)

	rows, err := source.FindProductDetailRaw(context.Background(), f.products[0].ID)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = source.FindProductDetailRaw(context.Background(), 9999)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
