// Package repo persists cart snapshots in Postgres.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/storefront/internal/cart"
)

const (
	loadSnapshotSQL = `SELECT payload FROM cart_snapshots WHERE storage_key = $1`
	saveSnapshotSQL = `INSERT INTO cart_snapshots (storage_key, payload, updated_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (storage_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	purgeSnapshotsSQL = `DELETE FROM cart_snapshots WHERE updated_at < $1`
)

// Querier is the subset of pgxpool.Pool used by CartSnapshots.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CartSnapshots implements cart.Persister on the cart_snapshots table.
type CartSnapshots struct {
	Q   Querier
	Now func() time.Time
}

func (r CartSnapshots) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Load implements cart.Persister.
func (r CartSnapshots) Load(ctx context.Context, key string) ([]byte, error) {
	if r.Q == nil {
		return nil, cart.ErrNoSnapshot
	}
	var payload []byte
	err := r.Q.QueryRow(ctx, loadSnapshotSQL, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("repo: load cart snapshot: %w", err)
	}
	return payload, nil
}

// Save implements cart.Persister.
func (r CartSnapshots) Save(ctx context.Context, key string, blob []byte) error {
	if r.Q == nil {
		return errors.New("repo: querier not configured")
	}
	if _, err := r.Q.Exec(ctx, saveSnapshotSQL, key, string(blob), r.now()); err != nil {
		return fmt.Errorf("repo: save cart snapshot: %w", err)
	}
	return nil
}

// Purge deletes snapshots untouched for longer than maxAge and returns how
// many were removed.
func (r CartSnapshots) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	if r.Q == nil || maxAge <= 0 {
		return 0, nil
	}
	tag, err := r.Q.Exec(ctx, purgeSnapshotsSQL, r.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("repo: purge cart snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
