package cart

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// guardStripes is the number of mutexes shared by all session keys.
const guardStripes = 64

// Sessions hosts one Store per cart session and opens them lazily. When
// MaxOpen is exceeded the least recently used store is dropped from memory;
// its state stays in the persister and is rehydrated on next use. Stores of
// the same session share a guard, so a request still holding an evicted
// store and one holding its replacement mutate the cart one after the other.
type Sessions struct {
	Prefix    string
	Persister Persister
	Logger    zerolog.Logger
	MaxOpen   int
	Now       func() time.Time
	// OnOpen is called once for every store opened, e.g. to attach observers.
	OnOpen func(ctx context.Context, sessionID string, store *Store)

	mu       sync.Mutex
	stores   map[string]*Store
	lastUsed map[string]time.Time
	guards   [guardStripes]sync.Mutex
}

func (s *Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Key returns the storage key for a session.
func (s *Sessions) Key(sessionID string) string {
	prefix := strings.TrimSpace(s.Prefix)
	if prefix == "" {
		prefix = DefaultStorageKey
	}
	return prefix + ":" + sessionID
}

// Get returns the store of a session, opening it on first use. A store
// already in memory is refreshed from the persister first, so writes made by
// other processes sharing it are never overwritten with stale lines.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	if store, ok := s.cached(sessionID); ok {
		store.Refresh(ctx)
		return store
	}

	store := Open(ctx, Options{
		Key:       s.Key(sessionID),
		Persister: s.Persister,
		Guard:     s.guard(sessionID),
		Logger:    s.Logger.With().Str("session_id", sessionID).Logger(),
		Now:       s.Now,
	})

	s.mu.Lock()
	if s.stores == nil {
		s.stores = make(map[string]*Store)
		s.lastUsed = make(map[string]time.Time)
	}
	if existing, ok := s.stores[sessionID]; ok {
		s.lastUsed[sessionID] = s.now()
		s.mu.Unlock()
		return existing
	}
	s.stores[sessionID] = store
	s.lastUsed[sessionID] = s.now()
	s.evictLocked(sessionID)
	s.mu.Unlock()

	if s.OnOpen != nil {
		s.OnOpen(ctx, sessionID, store)
	}
	return store
}

func (s *Sessions) cached(sessionID string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[sessionID]
	if ok {
		s.lastUsed[sessionID] = s.now()
	}
	return store, ok
}

func (s *Sessions) guard(sessionID string) sync.Locker {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.guards[h.Sum32()%guardStripes]
}

// Drop forgets the in-memory store of a session. The next Get rehydrates it
// from the persister.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, sessionID)
	delete(s.lastUsed, sessionID)
}

// Open reports how many stores are held in memory.
func (s *Sessions) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

func (s *Sessions) evictLocked(keep string) {
	if s.MaxOpen <= 0 {
		return
	}
	for len(s.stores) > s.MaxOpen {
		var (
			oldestID string
			oldestAt time.Time
		)
		for id, at := range s.lastUsed {
			if id == keep {
				continue
			}
			if oldestID == "" || at.Before(oldestAt) {
				oldestID, oldestAt = id, at
			}
		}
		delete(s.stores, oldestID)
		delete(s.lastUsed, oldestID)
	}
}
