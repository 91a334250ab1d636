package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type IdempotencyStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewIdempotencyStore(client goredis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Check(ctx context.Context, scope, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, idempotencyKey(scope, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}
	return b, true, nil
}

// Set keeps the first stored response; a racing duplicate does not
// overwrite it.
func (s *IdempotencyStore) Set(ctx context.Context, scope, key string, response []byte) error {
	if err := s.client.SetNX(ctx, idempotencyKey(scope, key), response, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}
