package lock

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-product-cache/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a Locker.
type Options struct {
	// RetryInterval is the pause between two acquisition attempts.
	RetryInterval time.Duration
}

// DefaultOptions polls every 100ms.
func DefaultOptions() Options {
	return Options{RetryInterval: 100 * time.Millisecond}
}

// Validate checks if the options are usable.
func (o Options) Validate() error {
	if o.RetryInterval <= 0 {
		return &cache.ConfigError{Field: "RetryInterval", Message: "must be greater than 0"}
	}
	return nil
}

// Locker grants short-lived mutual exclusion on a key across every process
// sharing the store. Locks are advisory and expire after their lease.
type Locker struct {
	store  cache.Store
	opts   Options
	logger *zap.Logger
}

// New builds a Locker on top of store.
func New(store cache.Store, opts Options, logger *zap.Logger) (*Locker, error) {
	if store == nil {
		return nil, goerrors.New("lock store is required", goerrors.CategoryBadInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{store: store, opts: opts, logger: logger}, nil
}

// NewOwnerToken returns a token unique to one acquisition.
func NewOwnerToken() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
}

// TryLock polls until key is acquired for token or wait elapses. Not getting
// the lock is reported as false with a nil error. The call never sleeps past
// the deadline and returns early when ctx is done.
func (l *Locker) TryLock(ctx context.Context, key, token string, wait, lease time.Duration) (bool, error) {
	if token == "" {
		return false, goerrors.New("lock owner token is required", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"key": key})
	}
	if lease <= 0 {
		return false, goerrors.New("lock lease must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"key": key})
	}

	deadline := time.Now().Add(wait)
	attempts := 0
	for {
		attempts++
		ok, err := l.store.SetIfAbsent(ctx, key, []byte(token), lease)
		if err != nil {
			return false, err
		}
		if ok {
			l.logger.Debug("lock acquired",
				zap.String("key", key),
				zap.String("owner_token", token),
				zap.Int("attempts", attempts),
			)
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.logger.Debug("lock not acquired",
				zap.String("key", key),
				zap.Duration("wait", wait),
				zap.Int("attempts", attempts),
			)
			return false, nil
		}

		pause := l.opts.RetryInterval
		if remaining < pause {
			pause = remaining
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Unlock removes key only while it is still held by token. A holder whose
// lease already expired cannot release a lock taken since by someone else.
func (l *Locker) Unlock(ctx context.Context, key, token string) (bool, error) {
	removed, err := l.store.CompareAndDelete(ctx, key, []byte(token))
	if err != nil {
		l.logger.Error("lock release failed",
			zap.String("key", key),
			zap.String("owner_token", token),
			zap.Error(err),
		)
		return false, err
	}

	if removed {
		l.logger.Debug("lock released", zap.String("key", key), zap.String("owner_token", token))
	} else {
		l.logger.Warn("lock not released, record missing or owned by another holder",
			zap.String("key", key),
			zap.String("owner_token", token),
		)
	}
	return removed, nil
}

// ForceUnlockIfExists deletes key whoever holds it. Meant for operators
// clearing a stuck lock.
func (l *Locker) ForceUnlockIfExists(ctx context.Context, key string) (bool, error) {
	removed, err := l.store.Delete(ctx, key)
	if err != nil {
		return false, err
	}
	if removed > 0 {
		l.logger.Warn("lock force released", zap.String("key", key))
	}
	return removed > 0, nil
}
