package proofcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key([]byte("proof-a"))
	b := Key([]byte("proof-b"))

	assert.Len(t, a, 64, "hex-encoded sha256")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key([]byte("proof-a")), "key is deterministic")
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := Key([]byte("proof"))

	status, _, done := s.CheckAndMark(key)
	require.Equal(t, StatusNew, status)
	require.NotNil(t, done)

	// While in flight, a second check sees the marker.
	status2, _, done2 := s.CheckAndMark(key)
	assert.Equal(t, StatusInFlight, status2)
	assert.Equal(t, done, done2, "waiters share the holder's channel")

	s.Complete(key, "tx_1", done)

	status3, entryID, _ := s.CheckAndMark(key)
	assert.Equal(t, StatusConsumed, status3)
	assert.Equal(t, "tx_1", entryID)
}

func TestMemoryStoreFailReleasesKey(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	key := Key([]byte("proof"))

	status, _, done := s.CheckAndMark(key)
	require.Equal(t, StatusNew, status)

	s.Fail(key, done)

	status, _, done = s.CheckAndMark(key)
	assert.Equal(t, StatusNew, status, "a failed attempt does not consume the proof")
	require.NotNil(t, done)
	s.Fail(key, done)
}

func TestMemoryStoreWaitForResult(t *testing.T) {
	t.Run("completed attempt yields entry id", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		key := Key([]byte("proof"))

		_, _, done := s.CheckAndMark(key)

		got := make(chan string, 1)
		go func() {
			entryID, err := s.WaitForResult(context.Background(), key, done)
			assert.NoError(t, err)
			got <- entryID
		}()

		s.Complete(key, "tx_42", done)

		select {
		case entryID := <-got:
			assert.Equal(t, "tx_42", entryID)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never woke up")
		}
	})

	t.Run("failed attempt yields empty id", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		key := Key([]byte("proof"))

		_, _, done := s.CheckAndMark(key)

		got := make(chan string, 1)
		go func() {
			entryID, err := s.WaitForResult(context.Background(), key, done)
			assert.NoError(t, err)
			got <- entryID
		}()

		s.Fail(key, done)

		select {
		case entryID := <-got:
			assert.Empty(t, entryID)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never woke up")
		}
	})

	t.Run("context cancellation unblocks the waiter", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		key := Key([]byte("proof"))

		_, _, done := s.CheckAndMark(key)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := s.WaitForResult(ctx, key, done)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		s.Fail(key, done)
	})
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(30 * time.Millisecond)
	key := Key([]byte("proof"))

	_, _, done := s.CheckAndMark(key)
	s.Complete(key, "tx_1", done)

	status, _, _ := s.CheckAndMark(key)
	require.Equal(t, StatusConsumed, status)

	time.Sleep(60 * time.Millisecond)

	status, _, done = s.CheckAndMark(key)
	assert.Equal(t, StatusNew, status, "consumed entries expire after the ttl")
	s.Fail(key, done)
}
