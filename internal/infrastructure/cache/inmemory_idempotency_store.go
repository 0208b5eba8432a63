package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
)

// requestKey is a claimed request key and its expiry
type requestKey struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps claimed request keys in process memory.
// Keys are not shared between instances, so it only suits a single server
// or tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	keys      map[string]requestKey
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates an in-memory store and starts a
// background sweep of expired keys every sweepInterval
func NewInMemoryIdempotencyStore(sweepInterval time.Duration) *InMemoryIdempotencyStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	store := &InMemoryIdempotencyStore{
		keys:     make(map[string]requestKey),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.sweepLoop(sweepInterval)

	return store
}

// MarkProcessed claims a key for ttl. It returns false if the key is
// already claimed and has not expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if k, exists := s.keys[key]; exists && now.Before(k.expiresAt) {
		return false, nil
	}
	s.keys[key] = requestKey{expiresAt: now.Add(ttl)}
	return true, nil
}

// IsProcessed reports whether a key is currently claimed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, exists := s.keys[key]
	if !exists {
		return false, nil
	}
	return s.now().Before(k.expiresAt), nil
}

// Forget releases a key so the request can be retried
func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired keys
func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, k := range s.keys {
		if !now.Before(k.expiresAt) {
			delete(s.keys, key)
		}
	}
}

// Size returns the number of keys held, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
