// Command conduitd runs the Conduit pay-per-call API marketplace.
package main

import (
	"log/slog"
	"os"

	"github.com/conduit-market/conduit/config"
	"github.com/conduit-market/conduit/facilitator"
	"github.com/conduit-market/conduit/gateway"
	"github.com/conduit-market/conduit/handlers"
	"github.com/conduit-market/conduit/ledger"
	"github.com/conduit-market/conduit/proofcache"
	"github.com/conduit-market/conduit/registry"
	"github.com/conduit-market/conduit/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	reg := registry.Default()

	ldg := ledger.New(cfg.LedgerCapacity)

	var proofs proofcache.Store
	if cfg.ProofCachePath != "" {
		store, err := proofcache.NewBoltStore(cfg.ProofCachePath, proofcache.DefaultTTL)
		if err != nil {
			logger.Error("opening proof cache", "path", cfg.ProofCachePath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		proofs = store
	}

	var verifier gateway.Verifier
	if cfg.FacilitatorURL == "" {
		logger.Warn("no facilitator configured, running in demo mode")
	} else {
		verifier = facilitator.NewClient(&facilitator.Config{
			URL:     cfg.FacilitatorURL,
			Timeout: cfg.VerifyTimeout,
		})
	}

	gw, err := gateway.New(gateway.Config{
		PayTo:          cfg.PayTo,
		Network:        cfg.Network,
		FacilitatorURL: cfg.FacilitatorURL,
		Verifier:       verifier,
		Ledger:         ldg,
		Proofs:         proofs,
		VerifyTimeout:  cfg.VerifyTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("building gateway", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Registry:    reg,
		Gateway:     gw,
		Ledger:      ldg,
		Handlers:    handlers.Default(),
		Network:     cfg.Network,
		Facilitator: cfg.FacilitatorURL,
		PayTo:       cfg.PayTo,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("building server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(cfg.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
