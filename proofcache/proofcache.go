// Package proofcache guards the gateway against double-accepting a payment
// proof it has already consumed. Keys are derived from the raw proof bytes;
// values are the ledger entry id the proof settled into. The cache also
// tracks in-flight authorizations so two concurrent requests carrying the
// same proof cannot both reach the facilitator.
package proofcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for a proof. SHA-256 of the full proof bytes,
// which include the caller's signature and nonce, so the key is unique per
// payment attempt.
func Key(proof []byte) string {
	sum := sha256.Sum256(proof)
	return hex.EncodeToString(sum[:])
}

// Status is the result of checking the cache.
type Status int

const (
	// StatusNew means no cached result and no in-flight request; the
	// caller now holds the in-flight marker and must Complete or Fail.
	StatusNew Status = iota
	// StatusConsumed means the proof has already settled.
	StatusConsumed
	// StatusInFlight means another request is authorizing this proof.
	StatusInFlight
)

// Store is the duplicate-proof guard contract.
//
// The protocol mirrors a settlement idempotency cache: CheckAndMark
// atomically classifies the key and, for StatusNew, marks it in-flight.
// The holder of the in-flight marker must call exactly one of Complete
// (caches the entry id) or Fail (clears the marker so a transient verifier
// failure can be retried).
type Store interface {
	CheckAndMark(key string) (Status, string, chan struct{})
	WaitForResult(ctx context.Context, key string, done chan struct{}) (string, error)
	Complete(key, entryID string, done chan struct{})
	Fail(key string, done chan struct{})
}
