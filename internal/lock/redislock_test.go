package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/lock"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLockSerialises(t *testing.T) {
	_, client := newClient(t)

	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, MaxWait: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, "demo", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		errs <- locker.WithLock(ctx, "demo", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(releaseFirst)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockFailsFastWhenHeld(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set("checkout:anon:1", "someone-else"))

	locker := lock.Locker{R: client, Prefix: "checkout:"}
	called := false
	err := locker.WithLock(context.Background(), "anon:1", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrLocked)
	require.False(t, called)
}

func TestWithLockReleasesOnError(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "checkout:"}

	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "anon:1", time.Second, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("checkout:anon:1"))
}

func TestLocalRejectsReentry(t *testing.T) {
	var l lock.Local
	err := l.WithLock(context.Background(), "k", 0, func(ctx context.Context) error {
		return l.WithLock(ctx, "k", 0, func(context.Context) error { return nil })
	})
	require.ErrorIs(t, err, lock.ErrLocked)
	require.NoError(t, l.WithLock(context.Background(), "k", 0, func(context.Context) error { return nil }))
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	mr, client := newClient(t)
	locker := lock.Locker{R: client, Prefix: "checkout:"}

	err := locker.WithLock(context.Background(), "anon:2", time.Second, func(context.Context) error {
		// simulate the lease expiring and another instance taking it over
		mr.Del("checkout:anon:2")
		return mr.Set("checkout:anon:2", "other-instance")
	})
	require.NoError(t, err)
	got, err := mr.Get("checkout:anon:2")
	require.NoError(t, err)
	require.Equal(t, "other-instance", got)
}
