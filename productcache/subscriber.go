package productcache

import (
	"context"
	"encoding/json"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/cache"
	"go.uber.org/zap"
)

// Subscriber evicts local entries when another instance publishes an update.
type Subscriber struct {
	store   cache.Store
	channel string
	local   cache.LocalCache
	logger  *zap.Logger
	metrics *Metrics

	mu  sync.Mutex
	sub cache.Subscription
}

// NewSubscriber listens on channel, or on the default channel when it is
// empty. A local tier is required.
func NewSubscriber(store cache.Store, channel string, opts ...Option) (*Subscriber, error) {
	o := buildOptions(opts)
	if store == nil || o.local == nil {
		return nil, goerrors.New("subscriber needs a store and a local cache", goerrors.CategoryBadInput)
	}
	if channel == "" {
		channel = cache.DefaultInvalidationChannel
	}
	return &Subscriber{
		store:   store,
		channel: channel,
		local:   o.local,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Start subscribes to the update channel. It returns once the subscription
// is confirmed; events are handled in the background until Close.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}

	sub, err := s.store.Subscribe(ctx, s.channel, s.handle)
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("listening for product updates", zap.String("channel", s.channel))
	return nil
}

// Close stops the subscription. It is safe to call more than once.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Close()
}

func (s *Subscriber) handle(_ context.Context, payload []byte) {
	var event UpdateEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ProductID <= 0 {
		s.metrics.event("malformed")
		s.logger.Warn("dropping malformed product update",
			zap.String("channel", s.channel),
			zap.ByteString("payload", payload),
			zap.Error(err),
		)
		return
	}

	key := cache.ProductKey(event.ProductID)
	s.local.Delete(key)
	s.metrics.event("evicted")
	s.logger.Debug("local product entry evicted",
		zap.String("key", key),
		zap.Int64("product_id", event.ProductID),
	)
}
