package report

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storeEntry struct {
	result    *Result
	expiresAt time.Time
}

// Store keeps recent run results in memory so the HTTP service can serve
// them back by id. Entries expire after the TTL.
type Store struct {
	mu    sync.RWMutex
	items map[string]*storeEntry
	ttl   time.Duration
	now   func() time.Time
}

// DefaultTTL applies when RUN_TTL is unset or invalid.
const DefaultTTL = time.Hour

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		items: make(map[string]*storeEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTLFromEnv reads RUN_TTL as a Go duration.
func TTLFromEnv() time.Duration {
	if s := os.Getenv("RUN_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return DefaultTTL
}

// Put assigns a fresh id when res has none and stores it.
func (s *Store) Put(res *Result) string {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[res.ID] = &storeEntry{result: res, expiresAt: s.now().Add(s.ttl)}
	return res.ID
}

// Get returns an unexpired result.
func (s *Store) Get(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
