package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/iacscan/iacscan/internal/alternatives"
)

type memoryEntry struct {
	candidates []alternatives.Candidate
	fetchedAt  time.Time
}

// MemoryStore is an in-process TTL cache for alternative lookups. Safe for
// concurrent readers; writes only happen after a completed lookup.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[alternatives.Key]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a memory cache with the given TTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[alternatives.Key]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the clock, used by tests to step time deterministically
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Get returns the cached candidates for key. An entry older than the TTL
// reads as absent.
func (m *MemoryStore) Get(_ context.Context, key alternatives.Key) ([]alternatives.Candidate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(entry.fetchedAt) >= m.ttl {
		return nil, false, nil
	}

	out := make([]alternatives.Candidate, len(entry.candidates))
	copy(out, entry.candidates)
	return out, true, nil
}

// Put stores candidates for key, replacing any previous entry whole
func (m *MemoryStore) Put(_ context.Context, key alternatives.Key, candidates []alternatives.Candidate) error {
	stored := make([]alternatives.Candidate, len(candidates))
	copy(stored, candidates)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{candidates: stored, fetchedAt: m.now()}
	return nil
}
