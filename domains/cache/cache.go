package cache

import (
	"context"
	"time"
)

// KeyStore is a small TTL key/value store used for replay protection and
// identity lookups. Implementations: Valkey and in-process memory.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores the value only when the key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
