package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Local is an in-process lock for single-instance deployments without Redis.
// Keys are never waited on: a held key fails with ErrLocked.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// WithLock runs fn while holding key. ttl is accepted for interface parity.
func (l *Local) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]struct{})
	}
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrLocked
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}
