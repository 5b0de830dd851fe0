package keystore

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-wabridge/domains/cache"
	"github.com/AzielCF/az-wabridge/infrastructure/valkey"
	valkeylib "github.com/valkey-io/valkey-go"
)

// ValkeyStore shares keys across every bridge replica.
type ValkeyStore struct {
	client *valkey.Client
	prefix string
}

var _ cache.KeyStore = (*ValkeyStore)(nil)

func NewValkeyStore(client *valkey.Client) *ValkeyStore {
	return &ValkeyStore{
		client: client,
		prefix: client.Key("kv") + ":",
	}
}

func (s *ValkeyStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *ValkeyStore) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	cmd := s.inner().B().Get().Key(s.fullKey(key)).Build()
	val, err := s.inner().Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	cmd := setCommand(s.inner().B(), s.fullKey(key), value, ttl, false)
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	cmd := setCommand(s.inner().B(), s.fullKey(key), value, ttl, true)
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		if valkey.IsNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return true, nil
}

// setCommand builds SET ... [NX] PX <ms>. Expiry is kept in milliseconds and
// never below one, since PX 0 is rejected by the server.
func setCommand(b valkeylib.Builder, key, value string, ttl time.Duration, onlyIfAbsent bool) valkeylib.Completed {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	set := b.Set().Key(key).Value(value)
	if onlyIfAbsent {
		return set.Nx().Px(ttl).Build()
	}
	return set.Px(ttl).Build()
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	cmd := s.inner().B().Del().Key(s.fullKey(key)).Build()
	return s.inner().Do(ctx, cmd).Error()
}
