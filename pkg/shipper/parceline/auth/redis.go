package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one token across bridge replicas so each replica
// doesn't burn its own credential exchange.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed token store. The key should be
// unique per credential set.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "parceline-bridge:token"
	}
	return &RedisStore{client: client, key: key}
}

// Get retrieves the shared token. A missing key yields a zero Token,
// which the TokenSource treats as absent.
func (s *RedisStore) Get(ctx context.Context) (Token, error) {
	var t Token
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := t.UnmarshalBinary(data); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Put stores the token with a TTL slightly past its hard expiry, so
// stale tokens age out of Redis on their own.
func (s *RedisStore) Put(ctx context.Context, t Token) error {
	ttl := time.Until(t.Expiry) + time.Minute
	if !t.RefreshExpiry.IsZero() {
		if refreshTTL := time.Until(t.RefreshExpiry) + time.Minute; refreshTTL > ttl {
			ttl = refreshTTL
		}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, s.key, t, ttl).Err()
}

// Clear drops the shared token.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

var _ Store = (*RedisStore)(nil)
