package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/selection"
)

// ErrNotFound indicates the requested cart line could not be located.
var ErrNotFound = errors.New("cart: line not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("cart: invalid input")

// DefaultStorageKey is the storage key used when none is configured.
const DefaultStorageKey = "storefront.cart"

// Snapshot is an immutable view of the cart after a mutation.
type Snapshot struct {
	Key     string `json:"key"`
	Version uint64 `json:"version"`
	Lines   []Line `json:"lines"`
}

// Total is the cart subtotal.
func (s Snapshot) Total() pricing.Money {
	return pricing.Subtotal(Items(s.Lines))
}

// Observer receives committed cart states in version order. Observers run
// synchronously on the mutating goroutine and must not mutate the store.
type Observer func(ctx context.Context, snap Snapshot)

// Options configures a Store. Guard serialises mutations of every Store
// opened for the same key; stores get a private one when it is nil.
type Options struct {
	Key       string
	Persister Persister
	Guard     sync.Locker
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Store is the list of cart lines for one session. The persisted snapshot is
// authoritative: every mutation re-reads it, applies the change under the
// guard, writes it back and then broadcasts the new state to observers.
type Store struct {
	guard   sync.Locker
	mu      sync.Mutex
	key     string
	lines   []Line
	version uint64
	lastErr error
	// dirty is set while the latest state failed to save. Reloads are
	// skipped until a save succeeds so the unsaved lines are not lost.
	dirty bool

	persister Persister
	logger    zerolog.Logger
	now       func() time.Time

	notifyMu  sync.Mutex
	observers map[int]Observer
	nextObs   int
	notified  uint64
}

// Open builds a store and rehydrates it from the persister. It never fails:
// missing or unreadable snapshots yield an empty cart.
func Open(ctx context.Context, opts Options) *Store {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultStorageKey
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	guard := opts.Guard
	if guard == nil {
		guard = &sync.Mutex{}
	}
	s := &Store{
		guard:     guard,
		key:       key,
		lines:     []Line{},
		persister: opts.Persister,
		logger:    opts.Logger,
		now:       now,
		observers: make(map[int]Observer),
	}
	s.reloadLocked(ctx)
	return s
}

// Refresh re-reads the persisted snapshot so that changes written through
// other stores or processes become visible. Observers are not notified.
func (s *Store) Refresh(ctx context.Context) {
	s.guard.Lock()
	defer s.guard.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)
}

// reloadLocked adopts the persisted lines. A missing snapshot means the cart
// expired or was never saved; an unreadable one leaves the current lines.
func (s *Store) reloadLocked(ctx context.Context) {
	if s.persister == nil || s.dirty {
		return
	}
	data, err := s.persister.Load(ctx, s.key)
	if errors.Is(err, ErrNoSnapshot) {
		s.lines = []Line{}
		return
	}
	if err == nil {
		var (
			lines    []Line
			revision uint64
		)
		lines, revision, err = decodeSnapshot(data)
		if err == nil {
			s.lines = lines
			s.version = max(s.version, revision)
			return
		}
	}
	s.lastErr = &PersistenceError{Op: "load", Key: s.key, Err: err}
	obs.IncCartPersistFailure("load")
	s.logger.Warn().Err(err).Str("cart_key", s.key).Msg("cart snapshot unreadable, keeping current lines")
}

// Key returns the storage key of the store.
func (s *Store) Key() string { return s.key }

// AddItem validates the selection and merges it into the cart. A line with
// the same identity has its quantity increased and keeps its stored price
// and customization; otherwise a new line is appended.
func (s *Store) AddItem(ctx context.Context, p menu.Product, sel selection.Selection, qty int) (Line, error) {
	if qty <= 0 {
		return Line{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(p.ID) == "" {
		return Line{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	valid, err := selection.Validate(p, sel)
	if err != nil {
		return Line{}, err
	}
	candidate := newLine(p, valid, qty)

	var result Line
	s.mutate(ctx, "add", func() {
		for i := range s.lines {
			if s.lines[i].ID == candidate.ID {
				s.lines[i].Quantity += qty
				result = s.lines[i].clone()
				return
			}
		}
		s.lines = append(s.lines, candidate)
		result = candidate.clone()
	})
	return result, nil
}

// RemoveItem deletes a line outright.
func (s *Store) RemoveItem(ctx context.Context, lineID string) error {
	var found bool
	s.mutate(ctx, "remove", func() {
		for i := range s.lines {
			if s.lines[i].ID == lineID {
				s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
				found = true
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, lineID)
	}
	return nil
}

// Increment adds one unit to a line.
func (s *Store) Increment(ctx context.Context, lineID string) (Line, error) {
	return s.step(ctx, "increment", lineID, 1)
}

// Decrement removes one unit from a line. A line never drops below one
// unit; use RemoveItem to delete it.
func (s *Store) Decrement(ctx context.Context, lineID string) (Line, error) {
	return s.step(ctx, "decrement", lineID, -1)
}

func (s *Store) step(ctx context.Context, op, lineID string, delta int) (Line, error) {
	var (
		result Line
		err    error
	)
	s.mutate(ctx, op, func() {
		for i := range s.lines {
			if s.lines[i].ID != lineID {
				continue
			}
			if s.lines[i].Quantity+delta < 1 {
				err = fmt.Errorf("%w: quantity cannot go below 1", ErrInvalidInput)
				return
			}
			s.lines[i].Quantity += delta
			result = s.lines[i].clone()
			return
		}
		err = fmt.Errorf("%w: %s", ErrNotFound, lineID)
	})
	return result, err
}

// Clear empties the cart unconditionally.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, "clear", func() {
		s.lines = []Line{}
	})
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Len reports the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// TotalPrice is the cart subtotal.
func (s *Store) TotalPrice() pricing.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Subtotal(Items(s.lines))
}

// Summary prices the cart for an order type.
func (s *Store) Summary(orderType pricing.OrderType, deliveryFee pricing.Money) pricing.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Compute(Items(s.lines), orderType, deliveryFee)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastPersistError returns the most recent load or save failure, if any.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.observers, id)
	}
}

// mutate reloads the snapshot, applies fn and persists the result when the
// lines changed. Observers are called after the locks are released and only
// with versions newer than the last one delivered, so they may call read
// methods and never see states out of order.
func (s *Store) mutate(ctx context.Context, op string, fn func()) {
	s.guard.Lock()
	s.mu.Lock()
	s.reloadLocked(ctx)
	before := fingerprint(s.lines)
	fn()
	if fingerprint(s.lines) == before && op != "clear" {
		s.mu.Unlock()
		s.guard.Unlock()
		return
	}
	s.version++
	s.persistLocked(ctx, op)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.guard.Unlock()

	obs.IncCartMutation(op)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.notified {
		return
	}
	s.notified = snap.Version
	for _, observer := range s.observers {
		observer(ctx, snap)
	}
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	if s.persister == nil {
		return
	}
	data, err := encodeSnapshot(s.lines, s.version, s.now())
	if err == nil {
		err = s.persister.Save(ctx, s.key, data)
	}
	if err != nil {
		s.dirty = true
		s.lastErr = &PersistenceError{Op: "save", Key: s.key, Err: err}
		obs.IncCartPersistFailure("save")
		s.logger.Error().Err(err).Str("cart_key", s.key).Str("op", op).Msg("cart snapshot save failed")
		return
	}
	s.dirty = false
	s.lastErr = nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Key: s.key, Version: s.version, Lines: cloneLines(s.lines)}
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.clone())
	}
	return out
}

// fingerprint summarises ids and quantities to detect no-op mutations.
func fingerprint(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s:%d;", l.ID, l.Quantity)
	}
	return b.String()
}
