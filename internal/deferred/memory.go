package deferred

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	snapshot  *Context
	expiresAt time.Time
}

// MemoryStore in-memory реализация Store для тестов и локальных запусков.
// Мьютекс обеспечивает тот же at-most-once инвариант Consume, что GETDEL в Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore создает in-memory store с заданным TTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock подменяет источник времени (для тестов)
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Create(_ context.Context, snapshot *Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trackingID := uuid.New().String()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = s.now().UTC()
	}
	s.entries[trackingID] = memoryEntry{
		snapshot:  snapshot,
		expiresAt: s.now().Add(s.ttl),
	}
	return trackingID, nil
}

func (s *MemoryStore) Peek(_ context.Context, trackingID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[trackingID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, trackingID)
		return nil, ErrContextNotFound
	}
	return entry.snapshot, nil
}

func (s *MemoryStore) Consume(_ context.Context, trackingID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[trackingID]
	if !ok {
		return nil, ErrContextNotFound
	}
	delete(s.entries, trackingID)
	if s.now().After(entry.expiresAt) {
		return nil, ErrContextNotFound
	}
	return entry.snapshot, nil
}
