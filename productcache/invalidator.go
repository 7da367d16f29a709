package productcache

import (
	"context"
	"encoding/json"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/cache"
	"go.uber.org/zap"
)

// UpdateEvent is published after a product changed.
type UpdateEvent struct {
	ProductID int64 `json:"product_id"`
}

// Invalidator drops cached product details after a committed write and tells
// the other instances to do the same. Delivery to peers is best effort.
type Invalidator struct {
	store   cache.Store
	channel string
	local   cache.LocalCache
	logger  *zap.Logger
	metrics *Metrics
}

// NewInvalidator publishes update events on channel, or on the default
// channel when it is empty.
func NewInvalidator(store cache.Store, channel string, opts ...Option) (*Invalidator, error) {
	if store == nil {
		return nil, goerrors.New("invalidator store is required", goerrors.CategoryBadInput)
	}
	if channel == "" {
		channel = cache.DefaultInvalidationChannel
	}

	o := buildOptions(opts)
	return &Invalidator{
		store:   store,
		channel: channel,
		local:   o.local,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Invalidate removes the cached detail of productID and returns how many
// shared entries were deleted. Calling it again is harmless and returns 0.
// Only call it once the write that changed the product has committed.
func (i *Invalidator) Invalidate(ctx context.Context, productID int64) (int64, error) {
	if productID <= 0 {
		return 0, goerrors.New("product id must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"product_id": productID})
	}

	key := cache.ProductKey(productID)

	removed, err := i.store.Delete(ctx, key)
	if i.local != nil {
		i.local.Delete(key)
	}
	if err != nil {
		i.metrics.invalidation("error")
		i.logger.Error("product invalidation failed",
			zap.String("key", key),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return 0, err
	}

	i.publish(ctx, productID)
	i.metrics.invalidation("ok")
	i.logger.Debug("product invalidated",
		zap.String("key", key),
		zap.Int64("product_id", productID),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

// InvalidateMany invalidates every distinct id, carrying on past failures.
func (i *Invalidator) InvalidateMany(ctx context.Context, productIDs ...int64) (int64, error) {
	seen := make(map[int64]struct{}, len(productIDs))
	var total int64
	var errs []error

	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		removed, err := i.Invalidate(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += removed
	}
	return total, errors.Join(errs...)
}

// publish never fails the invalidation: peers that miss the event serve
// their local copy until it expires.
func (i *Invalidator) publish(ctx context.Context, productID int64) {
	payload, err := json.Marshal(UpdateEvent{ProductID: productID})
	if err != nil {
		i.logger.Error("update event encoding failed", zap.Int64("product_id", productID), zap.Error(err))
		return
	}
	if err := i.store.Publish(ctx, i.channel, payload); err != nil {
		i.logger.Warn("update event publish failed",
			zap.String("channel", i.channel),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
}
