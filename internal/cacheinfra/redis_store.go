package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-product-cache/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ cache.Store = (*RedisStore)(nil)

// ConnectionState describes the health of the store connection.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateReconnecting
	StateDegraded
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithLogger sets the logger used by the store and its monitor.
func WithLogger(logger *zap.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAlarmHandler is called when the connection alarm fires.
func WithAlarmHandler(fn func(error)) RedisOption {
	return func(s *RedisStore) {
		s.onAlarm = fn
	}
}

// WithStateListener is called on every connection state transition.
func WithStateListener(fn func(ConnectionState)) RedisOption {
	return func(s *RedisStore) {
		s.onState = fn
	}
}

// RedisStore implements cache.Store on top of a go-redis client and keeps the
// connection healthy with a background monitor.
type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
	logger *zap.Logger

	onAlarm func(error)
	onState func(ConnectionState)

	mu    sync.RWMutex
	state ConnectionState

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRedisStore validates cfg and builds the client. No connection is opened
// until Connect or the first command.
func NewRedisStore(cfg RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
	})

	s := &RedisStore{
		client: client,
		cfg:    cfg,
		logger: zap.NewNop(),
		state:  StateConnecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Client exposes the underlying go-redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// State returns the current connection state.
func (s *RedisStore) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *RedisStore) setState(state ConnectionState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev == state {
		return
	}
	s.logger.Info("redis connection state changed",
		zap.String("from", prev.String()),
		zap.String("to", state.String()),
		zap.String("addr", s.cfg.Addr),
	)
	if s.onState != nil {
		s.onState(state)
	}
}

// Connect pings the server, retrying with the reconnect policy. It returns a
// StoreUnavailable error once every attempt failed.
func (s *RedisStore) Connect(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxReconnectAttempts; attempt++ {
		if err = s.ping(ctx); err == nil {
			s.setState(StateConnected)
			return nil
		}
		s.logger.Warn("redis connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == s.cfg.MaxReconnectAttempts {
			break
		}
		if !sleepCtx(ctx, ReconnectDelay(attempt, s.cfg.ReconnectStep, s.cfg.MaxReconnectDelay)) {
			err = ctx.Err()
			break
		}
	}
	s.setState(StateDegraded)
	return cache.StoreUnavailable(err, "connect", s.cfg.Addr)
}

// Start launches the connection monitor. It is safe to call more than once.
func (s *RedisStore) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.monitor(ctx)
	})
}

// Close stops the monitor and closes the client.
func (s *RedisStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.setState(StateClosed)
		err = s.client.Close()
	})
	return err
}

func (s *RedisStore) monitor(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := s.ping(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("redis connection lost", zap.Error(err))
		if !s.reconnect(ctx) {
			return
		}
	}
}

// reconnect retries until the server answers, the attempts run out or ctx is
// cancelled. It reports whether the connection is back.
func (s *RedisStore) reconnect(ctx context.Context) bool {
	s.setState(StateReconnecting)

	alarm := time.AfterFunc(s.cfg.ConnectionTimeout, func() {
		err := cache.StoreUnavailable(errors.New("connection timeout"), "reconnect", s.cfg.Addr)
		s.logger.Error("redis connection alarm",
			zap.Duration("timeout", s.cfg.ConnectionTimeout),
			zap.Error(err),
		)
		if s.onAlarm != nil {
			s.onAlarm(err)
		}
	})
	defer alarm.Stop()

	for attempt := 1; attempt <= s.cfg.MaxReconnectAttempts; attempt++ {
		if !sleepCtx(ctx, ReconnectDelay(attempt, s.cfg.ReconnectStep, s.cfg.MaxReconnectDelay)) {
			return false
		}

		err := s.ping(ctx)
		if err == nil {
			s.logger.Info("redis reconnected", zap.Int("attempt", attempt))
			s.setState(StateConnected)
			return true
		}
		s.logger.Warn("redis reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	s.logger.Error("redis reconnect attempts exhausted, store degraded",
		zap.Int("attempts", s.cfg.MaxReconnectAttempts),
	)
	s.setState(StateDegraded)
	return false
}

func (s *RedisStore) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Get implements cache.Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.StoreUnavailable(err, "get", key)
	}
	return payload, true, nil
}

// Set implements cache.Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cache.StoreUnavailable(err, "set", key)
	}
	return nil
}

// Delete implements cache.Store.
func (s *RedisStore) Delete(ctx context.Context, key string) (int64, error) {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return 0, cache.StoreUnavailable(err, "delete", key)
	}
	return removed, nil
}

// SetIfAbsent implements cache.Store with SET NX.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, cache.StoreUnavailable(err, "set_if_absent", key)
	}
	return ok, nil
}

// CompareAndDelete implements cache.Store with a server side script, so the
// read and the delete cannot interleave with another writer.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	removed, err := compareAndDelete.Run(ctx, s.client, []string{key}, string(expected)).Int64()
	if err != nil {
		return false, cache.StoreUnavailable(err, "compare_and_delete", key)
	}
	return removed == 1, nil
}

// Publish implements cache.Store.
func (s *RedisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return cache.StoreUnavailable(err, "publish", channel)
	}
	return nil
}

// Subscribe implements cache.Store. go-redis resubscribes after a reconnect,
// messages published in between are lost.
func (s *RedisStore) Subscribe(ctx context.Context, channel string, handler cache.MessageHandler) (cache.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, cache.StoreUnavailable(err, "subscribe", channel)
	}

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	messages := pubsub.Channel()
	go func() {
		defer close(sub.done)
		for msg := range messages {
			handler(ctx, []byte(msg.Payload))
		}
	}()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
	done   chan struct{}
	err    error
}

func (r *redisSubscription) Close() error {
	r.once.Do(func() {
		r.err = r.pubsub.Close()
		<-r.done
	})
	return r.err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
