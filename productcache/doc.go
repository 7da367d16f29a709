// Package productcache serves product detail views through a cache-aside read
// path guarded by a distributed lock, and invalidates them after writes.
//
// # Overview
//
// A lookup walks three tiers in order:
//
//  1. the optional in-process tier (cache.LocalCache)
//  2. the shared store under PRO_ITEM:{id} (cache.Store)
//  3. the repository, queried only by the holder of PRO_LOCK:{id}
//
// The lock holder checks the shared store again before querying, so a reader
// that waited behind another rebuild does not hit the database a second time.
// Products the repository does not know are remembered with a "null" marker
// for NegativeTTL.
//
// # Basic Usage
//
//	locker, _ := lock.New(store, lock.DefaultOptions(), logger)
//	svc, _ := productcache.NewService(store, locker, repo, cache.DefaultConfig(),
//		productcache.WithLocalCache(local),
//		productcache.WithLogger(logger),
//	)
//
//	res, err := svc.GetProductDetail(ctx, 42)
//	switch {
//	case err != nil && cache.IsNotFound(err):
//		// 404
//	case err != nil:
//		// 5xx
//	case res.RetryLater:
//		// another caller is rebuilding, res.Message is "please retry"
//	default:
//		// res.Data
//	}
//
// # Retry Later
//
// When the rebuild lock cannot be taken within LockWait, GetProductDetail
// returns a Result with RetryLater set and a nil error. This is an expected
// outcome under contention, not a failure.
//
// # Coalescing
//
// With CoalesceRequests enabled, concurrent misses for the same id inside one
// process share a single lock attempt and repository query. The distributed
// lock still serializes rebuilds across processes.
//
// # Invalidation
//
// After a transaction that changes stock commits, call Invalidator.Invalidate
// (or InvalidateMany) for each affected product. It deletes the shared entry,
// drops the local entry and publishes {"product_id": id} on the update
// channel. Every instance running a Subscriber evicts its local copy when the
// event arrives. Events are not acknowledged nor replayed: an instance that
// misses one serves its local copy until the local TTL expires.
//
// Never invalidate before the commit. A concurrent reader could repopulate
// the cache from the pre-commit state.
//
// # Circuit Breaker
//
// NewBreakerSource wraps the repository with sony/gobreaker. While the
// breaker is open, rebuilds fail fast with a repository error.
package productcache
