package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores cart snapshots as Redis strings. A zero TTL keeps
// them forever.
type RedisPersister struct {
	R   *redis.Client
	TTL time.Duration
}

// Load fetches the snapshot for key.
func (p RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	if p.R == nil {
		return nil, ErrNoSnapshot
	}
	data, err := p.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("cart: redis get: %w", err)
	}
	return data, nil
}

// Save writes the snapshot for key.
func (p RedisPersister) Save(ctx context.Context, key string, blob []byte) error {
	if p.R == nil {
		return errors.New("cart: redis client not configured")
	}
	if err := p.R.Set(ctx, key, blob, p.TTL).Err(); err != nil {
		return fmt.Errorf("cart: redis set: %w", err)
	}
	return nil
}
