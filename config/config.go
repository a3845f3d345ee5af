// Package config loads marketplace configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults matching the public Conduit deployment.
const (
	DefaultAddr           = ":3402"
	DefaultNetwork        = "mainnet"
	DefaultPayTo          = "SP1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRCBGD7R"
	DefaultFacilitatorURL = "https://x402-facilitator.x402stacks.xyz"
)

// Config holds everything the server entrypoint needs to wire the
// marketplace.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Network is the target chain label advertised in challenges.
	Network string

	// PayTo is the payment recipient address.
	PayTo string

	// FacilitatorURL locates the payment facilitator. Empty selects demo
	// mode: proofs are accepted unverified and recorded as pending.
	FacilitatorURL string

	// LedgerCapacity bounds the transaction ledger buffer.
	LedgerCapacity int

	// ProofCachePath, when set, persists the consumed-proof guard in a
	// BoltDB file at this path.
	ProofCachePath string

	// VerifyTimeout bounds facilitator round trips per request.
	VerifyTimeout time.Duration
}

// Load reads .env if present, then the environment. Missing variables fall
// back to the public deployment defaults.
func Load() Config {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Addr:           DefaultAddr,
		Network:        envOr("STACKS_NETWORK", DefaultNetwork),
		PayTo:          envOr("SERVER_ADDRESS", DefaultPayTo),
		FacilitatorURL: envOr("FACILITATOR_URL", DefaultFacilitatorURL),
		LedgerCapacity: envInt("LEDGER_CAPACITY", 500),
		ProofCachePath: os.Getenv("PROOF_CACHE_PATH"),
		VerifyTimeout:  time.Duration(envInt("VERIFY_TIMEOUT_SECONDS", 30)) * time.Second,
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if os.Getenv("DEMO_MODE") == "true" {
		cfg.FacilitatorURL = ""
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
