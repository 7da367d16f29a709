// Package cache defines the contracts shared by the product read path.
//
// # Overview
//
// The package exports the two cache tiers and the helpers built on top of them:
//
//   - Store: the shared key-value tier (Redis in production) with conditional
//     writes, compare-and-delete and pub/sub
//   - LocalCache: the in-process tier, never authoritative
//   - KeySerializer: builds the keys every instance agrees on
//
// # Keys
//
// Product details live under PRO_ITEM:{id} and the rebuild lock of a product
// under PRO_LOCK:{id}:
//
//	cache.ProductKey(42)     // "PRO_ITEM:42"
//	cache.ProductLockKey(42) // "PRO_LOCK:42"
//
// # Typed access
//
// GetJSON and SetJSON wrap a Store with JSON encoding:
//
//	view, ok, err := cache.GetJSON[catalog.ProductDetailView](ctx, store, cache.ProductKey(42))
//
// An entry holding NegativeMarker is reported as a miss by GetJSON; callers that
// need to tell "not cached" apart from "known missing" read the raw payload and
// check IsNegative.
//
// # Errors
//
// Errors are go-errors values. StoreUnavailable marks transport failures of the
// shared tier, NotFound a product the repository does not know, RepositoryError
// a failed source-of-truth query. Use the Is* helpers rather than comparing
// values, since wrapping clones the error.
//
// # See Also
//
// The productcache package implements the read path and invalidation on top of
// these contracts; internal/cacheinfra holds the Redis and sturdyc adapters.
package cache
