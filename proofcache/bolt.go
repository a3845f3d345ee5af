package proofcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "consumed_proofs"

// BoltStore persists consumed proofs in a BoltDB file so the replay guard
// survives process restarts. In-flight markers stay process-local: they
// only coordinate concurrent requests inside one instance, and a marker
// that outlived a crash would wedge the key forever.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration

	mu       sync.Mutex
	inFlight map[string]chan struct{}
}

type consumedRecord struct {
	EntryID   string    `json:"entryId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewBoltStore opens (or creates) the database at path and ensures the
// proofs bucket exists. ttl <= 0 selects DefaultTTL.
func NewBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{
		db:       db,
		ttl:      ttl,
		inFlight: make(map[string]chan struct{}),
	}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

// CheckAndMark atomically checks persisted results and the in-flight set,
// marking the key in-flight when it is new.
func (s *BoltStore) CheckAndMark(key string) (Status, string, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID := s.lookup(key); entryID != "" {
		return StatusConsumed, entryID, nil
	}

	if done, exists := s.inFlight[key]; exists {
		return StatusInFlight, "", done
	}

	done := make(chan struct{})
	s.inFlight[key] = done
	return StatusNew, "", done
}

// lookup reads an unexpired record for key, deleting it lazily when
// expired. Returns "" when the key is free.
func (s *BoltStore) lookup(key string) string {
	var entryID string
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		var rec consumedRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			// Unreadable record: drop it rather than wedge the key.
			return b.Delete([]byte(key))
		}
		if time.Now().After(rec.ExpiresAt) {
			return b.Delete([]byte(key))
		}
		entryID = rec.EntryID
		return nil
	})
	return entryID
}

// WaitForResult blocks until the in-flight authorization completes or ctx
// is cancelled.
func (s *BoltStore) WaitForResult(ctx context.Context, key string, done chan struct{}) (string, error) {
	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.lookup(key), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Complete persists the consumed proof and releases the in-flight marker.
// Writing the same key twice is a no-op overwrite, so retried completions
// are safe.
func (s *BoltStore) Complete(key, entryID string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := consumedRecord{EntryID: entryID, ExpiresAt: time.Now().Add(s.ttl)}
	data, err := json.Marshal(rec)
	if err == nil {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
		})
	}

	delete(s.inFlight, key)
	close(done)
}

// Fail releases the in-flight marker without persisting anything.
func (s *BoltStore) Fail(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	close(done)
}

var _ Store = (*BoltStore)(nil)
