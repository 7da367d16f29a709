package productcache

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/cache"
	"github.com/goliatone/go-product-cache/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductSource is the source of truth for product details.
type ProductSource interface {
	FindProductDetailRaw(ctx context.Context, productID int64) ([]catalog.ProductDetailRow, error)
}

// Locker grants cross-process mutual exclusion for a rebuild.
type Locker interface {
	TryLock(ctx context.Context, key, token string, wait, lease time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) (bool, error)
}

// Source tells which tier answered a lookup.
type Source string

const (
	SourceLocal           Source = "local"
	SourceRemote          Source = "remote"
	SourceRemoteAfterLock Source = "remote_after_lock"
	SourceDatabase        Source = "database"
)

// MessageRetryLater is returned when another caller is rebuilding the entry.
const MessageRetryLater = "please retry"

var sourceMessages = map[Source]string{
	SourceLocal:           "Product found in local cache",
	SourceRemote:          "Product found in cache",
	SourceRemoteAfterLock: "Product found in cache after lock",
	SourceDatabase:        "Product found in database",
}

// Result is the answer of a lookup. RetryLater results carry no data and are
// an expected outcome, not a failure.
type Result struct {
	Message    string                     `json:"message"`
	Data       *catalog.ProductDetailView `json:"data,omitempty"`
	Source     Source                     `json:"-"`
	RetryLater bool                       `json:"-"`
}

func found(view *catalog.ProductDetailView, src Source) Result {
	return Result{Message: sourceMessages[src], Data: view, Source: src}
}

func retryLater() Result {
	return Result{Message: MessageRetryLater, RetryLater: true}
}

// negativeEntry is the local form of the "not found" marker.
type negativeEntry struct {
	expiresAt time.Time
}

// Service serves product details through the local tier, the shared store
// and finally the repository, letting a single holder of the rebuild lock
// query the database for a given id.
type Service struct {
	store   cache.Store
	locker  Locker
	source  ProductSource
	cfg     cache.Config
	local   cache.LocalCache
	logger  *zap.Logger
	metrics *Metrics
	group   *singleflight.Group
	now     func() time.Time
}

// NewService wires the read path. The local tier is only used when
// cfg.LocalCacheEnabled is set and one is passed with WithLocalCache.
func NewService(store cache.Store, locker Locker, source ProductSource, cfg cache.Config, opts ...Option) (*Service, error) {
	if store == nil || locker == nil || source == nil {
		return nil, goerrors.New("store, locker and source are required", goerrors.CategoryBadInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	s := &Service{
		store:   store,
		locker:  locker,
		source:  source,
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
		now:     time.Now,
	}
	if cfg.LocalCacheEnabled {
		s.local = o.local
	}
	if cfg.CoalesceRequests {
		s.group = &singleflight.Group{}
	}
	return s, nil
}

// GetProductDetail returns the detail view of productID.
//
// A missing product is reported as a not found error and remembered for
// NegativeTTL. When the rebuild lock cannot be taken within LockWait the
// result has RetryLater set and the error is nil. Shared store failures are
// returned as they are; the database is never queried without the lock.
func (s *Service) GetProductDetail(ctx context.Context, productID int64) (Result, error) {
	if productID <= 0 {
		return Result{}, goerrors.New("product id must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"product_id": productID})
	}

	key := cache.ProductKey(productID)

	if res, hit, err := s.fromLocal(key, productID); hit {
		return res, err
	}

	res, hit, err := s.fromRemote(ctx, key, productID, SourceRemote)
	if hit {
		return res, err
	}
	if err != nil {
		s.metrics.lookup(outcomeError)
		return Result{}, err
	}

	if s.group == nil {
		return s.rebuild(ctx, key, productID)
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.rebuild(ctx, key, productID)
	})
	if shared {
		s.logger.Debug("product lookup coalesced", zap.String("key", key), zap.Int64("product_id", productID))
	}
	res, _ = v.(Result)
	return res, err
}

func (s *Service) fromLocal(key string, productID int64) (Result, bool, error) {
	if s.local == nil {
		return Result{}, false, nil
	}

	v, ok := s.local.Get(key)
	if !ok {
		return Result{}, false, nil
	}

	switch entry := v.(type) {
	case catalog.ProductDetailView:
		// callers get their own copy, the cached value stays immutable
		view := entry.Clone()
		s.metrics.lookup(string(SourceLocal))
		return found(&view, SourceLocal), true, nil
	case negativeEntry:
		if s.now().Before(entry.expiresAt) {
			s.metrics.lookup(outcomeNegative)
			return Result{Source: SourceLocal}, true, cache.NotFound(productID)
		}
	default:
		s.logger.Warn("unexpected local cache entry",
			zap.String("key", key),
			zap.String("type", typeName(v)),
		)
	}

	s.local.Delete(key)
	return Result{}, false, nil
}

// fromRemote reports hit=false with a nil error on a miss or a corrupt entry.
func (s *Service) fromRemote(ctx context.Context, key string, productID int64, src Source) (Result, bool, error) {
	payload, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Error("shared cache read failed",
			zap.String("key", key),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return Result{}, false, err
	}
	if !ok {
		return Result{}, false, nil
	}

	if cache.IsNegative(payload) {
		s.setLocal(key, negativeEntry{expiresAt: s.now().Add(s.cfg.NegativeTTL)})
		s.metrics.lookup(outcomeNegative)
		return Result{Source: src}, true, cache.NotFound(productID)
	}

	view, err := cache.DecodeJSON[catalog.ProductDetailView](key, payload)
	if err != nil {
		s.logger.Warn("ignoring corrupt shared cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
		return Result{}, false, nil
	}

	s.setLocal(key, view.Clone())
	s.metrics.lookup(string(src))
	return found(&view, src), true, nil
}

func (s *Service) rebuild(ctx context.Context, key string, productID int64) (Result, error) {
	lockKey := cache.ProductLockKey(productID)
	token := ownerTokenFromContext(ctx)

	acquired, err := s.locker.TryLock(ctx, lockKey, token, s.cfg.LockWait, s.cfg.LockLease)
	if err != nil {
		s.metrics.lockAttempt("error")
		s.metrics.lookup(outcomeError)
		return Result{}, err
	}
	if !acquired {
		s.metrics.lockAttempt("busy")
		s.metrics.lookup(outcomeRetryLater)
		s.logger.Info("product rebuild in progress elsewhere",
			zap.String("key", lockKey),
			zap.Int64("product_id", productID),
		)
		return retryLater(), nil
	}
	s.metrics.lockAttempt("acquired")
	defer s.release(ctx, lockKey, token)

	// another holder may have finished the rebuild while we waited
	res, hit, err := s.fromRemote(ctx, key, productID, SourceRemoteAfterLock)
	if hit {
		return res, err
	}
	if err != nil {
		s.metrics.lookup(outcomeError)
		return Result{}, err
	}

	return s.load(ctx, key, productID)
}

func (s *Service) load(ctx context.Context, key string, productID int64) (Result, error) {
	s.metrics.repositoryQuery()
	rows, err := s.source.FindProductDetailRaw(ctx, productID)
	if err != nil {
		s.logger.Error("product repository query failed",
			zap.String("key", key),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		s.metrics.lookup(outcomeError)
		return Result{}, cache.RepositoryError(err, productID)
	}

	view, ok := catalog.BuildProductDetailView(rows)
	if !ok {
		if err := s.store.Set(ctx, key, cache.NegativeMarker, s.cfg.NegativeTTL); err != nil {
			s.logger.Warn("negative marker write failed",
				zap.String("key", key),
				zap.Int64("product_id", productID),
				zap.Error(err),
			)
		}
		s.setLocal(key, negativeEntry{expiresAt: s.now().Add(s.cfg.NegativeTTL)})
		s.metrics.lookup(outcomeNegative)
		return Result{Source: SourceDatabase}, cache.NotFound(productID)
	}

	if err := cache.SetJSON(ctx, s.store, key, view, s.cfg.RemoteTTL); err != nil {
		s.logger.Warn("shared cache write failed",
			zap.String("key", key),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
	s.setLocal(key, view.Clone())
	s.metrics.lookup(string(SourceDatabase))
	return found(view, SourceDatabase), nil
}

func (s *Service) release(ctx context.Context, lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LockLease)
	defer cancel()

	if _, err := s.locker.Unlock(ctx, lockKey, token); err != nil {
		s.logger.Error("rebuild lock release failed",
			zap.String("key", lockKey),
			zap.String("owner_token", token),
			zap.Error(err),
		)
	}
}

func (s *Service) setLocal(key string, value any) {
	if s.local != nil {
		s.local.Set(key, value)
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
