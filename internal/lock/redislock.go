// Package lock guards checkout of one cart against concurrent submissions.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when the key stays held past MaxWait.
var ErrLocked = errors.New("lock: key is held")

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker holds keys in Redis with SET NX PX, shared by every instance.
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock waits for a held key. Zero fails
	// immediately with ErrLocked.
	MaxWait time.Duration
}

// WithLock runs fn while key is held and releases it afterwards, whatever fn
// returns. The lease expires after ttl if the process dies mid-call.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	token := uuid.NewString()
	fullKey := l.Prefix + key
	if err := l.acquire(ctx, fullKey, token, ttl); err != nil {
		return err
	}
	defer func() {
		// the caller's context may already be cancelled
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.R, []string{fullKey}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key, token string, ttl time.Duration) error {
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = defaultRetry
	}
	deadline := time.Now().Add(l.MaxWait)
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return ErrLocked
		}
		if wait > retry {
			wait = retry
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
