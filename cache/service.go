package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// NegativeMarker is the payload stored for ids the repository reported as missing.
var NegativeMarker = []byte("null")

// MessageHandler receives raw payloads published on a subscribed channel.
type MessageHandler func(ctx context.Context, payload []byte)

// Subscription is an active channel subscription.
type Subscription interface {
	Close() error
}

// Store is the shared key-value tier every instance talks to.
// Implementations report transport failures as StoreUnavailable errors and
// treat a missing key as a miss, never as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value under key; a zero ttl means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key and reports how many entries were removed.
	Delete(ctx context.Context, key string) (int64, error)
	// SetIfAbsent writes value only when key does not exist yet.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers messages at most once; nothing is replayed after a reconnect.
	Subscribe(ctx context.Context, channel string, handler MessageHandler) (Subscription, error)
}

// LocalCache is the in-process tier. It is never authoritative and expires
// entries after the TTL configured for the tier.
type LocalCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// IsNegative reports whether a stored payload is the negative marker.
func IsNegative(payload []byte) bool {
	return bytes.Equal(bytes.TrimSpace(payload), NegativeMarker)
}

// GetJSON is a type-safe wrapper that reads key from store and decodes it into T.
// The second return value is false on a miss or when the entry holds the negative marker;
// use Store.Get directly when the two must be told apart.
func GetJSON[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var zero T

	payload, ok, err := store.Get(ctx, key)
	if err != nil || !ok || IsNegative(payload) {
		return zero, false, err
	}

	value, err := DecodeJSON[T](key, payload)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// DecodeJSON decodes a payload read from key.
func DecodeJSON[T any](key string, payload []byte) (T, error) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		var zero T
		return zero, InvalidPayload(err, key)
	}
	return value, nil
}

// SetJSON encodes value and writes it to store under key.
func SetJSON[T any](ctx context.Context, store Store, key string, value T, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return InvalidPayload(err, key)
	}
	return store.Set(ctx, key, payload, ttl)
}
