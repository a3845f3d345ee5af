package proofcache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store implementation. Suitable for
// single-instance deployments; the guard window is lost on restart. Use
// BoltStore when consumed proofs must survive a process restart.
type MemoryStore struct {
	mu       sync.Mutex
	results  map[string]string
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

// DefaultTTL bounds how long a consumed proof stays rejected. It only needs
// to cover the facilitator's own replay window.
const DefaultTTL = 15 * time.Minute

// NewMemoryStore creates an in-memory proof cache. ttl <= 0 selects
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		results:  make(map[string]string),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// CheckAndMark atomically checks the cache and marks the key in-flight when
// it is new.
func (s *MemoryStore) CheckAndMark(key string) (Status, string, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.expiry[key]; exists {
		if time.Now().Before(expiry) {
			if entryID, ok := s.results[key]; ok {
				return StatusConsumed, entryID, nil
			}
		}
		delete(s.results, key)
		delete(s.expiry, key)
	}

	if done, exists := s.inFlight[key]; exists {
		return StatusInFlight, "", done
	}

	done := make(chan struct{})
	s.inFlight[key] = done
	return StatusNew, "", done
}

// WaitForResult blocks until the in-flight authorization completes or ctx
// is cancelled. Returns the cached entry id, or "" if the in-flight attempt
// failed and the key is free again.
func (s *MemoryStore) WaitForResult(ctx context.Context, key string, done chan struct{}) (string, error) {
	select {
	case <-done:
		return s.get(key), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *MemoryStore) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.expiry[key]
	if !exists {
		return ""
	}
	if time.Now().After(expiry) {
		delete(s.results, key)
		delete(s.expiry, key)
		return ""
	}
	return s.results[key]
}

// Complete caches the entry id for the key, releases the in-flight marker
// and wakes any waiters.
func (s *MemoryStore) Complete(key, entryID string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[key] = entryID
	s.expiry[key] = time.Now().Add(s.ttl)
	delete(s.inFlight, key)
	close(done)

	s.cleanupExpiredLocked()
}

// Fail releases the in-flight marker without caching, so the proof can be
// retried after a transient verifier failure.
func (s *MemoryStore) Fail(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	close(done)
}

// cleanupExpiredLocked removes expired entries. Caller holds the lock.
func (s *MemoryStore) cleanupExpiredLocked() {
	now := time.Now()
	for key, expiry := range s.expiry {
		if now.After(expiry) {
			delete(s.results, key)
			delete(s.expiry, key)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
