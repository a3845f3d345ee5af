// Package gateway implements the payment-gated request pipeline. Every
// request to a priced resource passes through a small state machine:
// without proof it terminates in a challenge; with proof it is verified and
// settled against the facilitator, recorded in the ledger, and only then
// allowed through to the resource handler.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/ledger"
	"github.com/conduit-market/conduit/proofcache"
)

// Verifier is the external payment facilitator as the gateway sees it.
// Implemented by facilitator.Client; tests substitute fakes.
type Verifier interface {
	Verify(ctx context.Context, proof conduit.PaymentProof, challenge conduit.PaymentChallenge) (*conduit.VerifyResult, error)
	Settle(ctx context.Context, proof conduit.PaymentProof, challenge conduit.PaymentChallenge) (*conduit.SettleResult, error)
}

// Config wires the gateway's collaborators.
type Config struct {
	// PayTo is the recipient identity placed in every challenge.
	PayTo string

	// Network is the target chain/environment label (e.g. "mainnet").
	Network string

	// FacilitatorURL is advertised in challenges so clients know where
	// to settle.
	FacilitatorURL string

	// Verifier authenticates proofs. Nil selects demo mode: any
	// presented proof is accepted and recorded as a pending,
	// non-billable entry.
	Verifier Verifier

	// Ledger receives one entry per authorized call. Required.
	Ledger *ledger.Ledger

	// Proofs guards against replaying an already-consumed proof. Nil
	// selects a fresh in-memory store.
	Proofs proofcache.Store

	// VerifyTimeout bounds the combined verify+settle wait. Zero selects
	// DefaultVerifyTimeout.
	VerifyTimeout time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultVerifyTimeout bounds the facilitator round trips for one request.
const DefaultVerifyTimeout = 30 * time.Second

// Gateway is the payment state machine. Construct once at startup and share
// across requests; all methods are safe for concurrent use.
type Gateway struct {
	payTo          string
	network        string
	facilitatorURL string
	verifier       Verifier
	ledger         *ledger.Ledger
	proofs         proofcache.Store
	verifyTimeout  time.Duration
	logger         *slog.Logger

	beforeVerifyHooks []BeforeVerifyHook
	afterVerifyHooks  []AfterVerifyHook
	afterSettleHooks  []AfterSettleHook
}

// New creates a gateway. Ledger is required; other collaborators receive
// defaults as documented on Config.
func New(config Config, opts ...Option) (*Gateway, error) {
	if config.Ledger == nil {
		return nil, fmt.Errorf("gateway: ledger is required")
	}
	g := &Gateway{
		payTo:          config.PayTo,
		network:        config.Network,
		facilitatorURL: config.FacilitatorURL,
		verifier:       config.Verifier,
		ledger:         config.Ledger,
		proofs:         config.Proofs,
		verifyTimeout:  config.VerifyTimeout,
		logger:         config.Logger,
	}
	if g.proofs == nil {
		g.proofs = proofcache.NewMemoryStore(0)
	}
	if g.verifyTimeout <= 0 {
		g.verifyTimeout = DefaultVerifyTimeout
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Authorization is the terminal state of a successfully paid request. The
// ledger entry referenced here was written before any handler ran.
type Authorization struct {
	Entry ledger.Entry
	Payer string
}

// IssueChallenge computes the payment terms for a resource. Deterministic
// given the resource's price; nothing is retained server-side.
func (g *Gateway) IssueChallenge(res conduit.ResourceDescriptor) conduit.PaymentChallenge {
	amount, err := conduit.ToBaseUnits(res.Price.Amount)
	if err != nil {
		// Catalog prices are validated at startup; an unparsable price
		// here means a descriptor bypassed the registry.
		g.logger.Error("unparsable resource price", "resource", res.ID, "price", res.Price.Amount)
		amount = "0"
	}
	return conduit.PaymentChallenge{
		Amount:      amount,
		Currency:    res.Price.Currency,
		PayTo:       g.payTo,
		Network:     g.network,
		Facilitator: g.facilitatorURL,
		Description: res.Name,
	}
}

// Authorize runs the payment state machine for one request to res carrying
// proof (possibly empty). On success exactly one ledger entry has been
// appended and the per-resource counter incremented; the caller may then
// invoke the handler. Handler failures after this point are billable and
// must not roll the entry back.
//
// Error classes, all matchable with errors.Is:
//   - conduit.ErrChallengeRequired: no proof presented.
//   - conduit.ErrPaymentRejected: proof declined or already consumed.
//   - conduit.ErrVerifierUnavailable: facilitator unreachable or timed
//     out. No ledger write.
func (g *Gateway) Authorize(ctx context.Context, res conduit.ResourceDescriptor, proof conduit.PaymentProof) (*Authorization, error) {
	if len(proof) == 0 {
		return nil, conduit.ErrChallengeRequired
	}

	key := proofcache.Key(proof)
	done, err := g.claimProof(ctx, key)
	if err != nil {
		return nil, err
	}

	auth, err := g.settleAndRecord(ctx, res, proof)
	if err != nil {
		g.proofs.Fail(key, done)
		return nil, err
	}
	g.proofs.Complete(key, auth.Entry.ID, done)
	return auth, nil
}

// claimProof acquires the in-flight marker for the proof key, rejecting
// proofs the gateway has already consumed. When another request holds the
// marker, it waits for that request's outcome rather than racing it to the
// facilitator.
func (g *Gateway) claimProof(ctx context.Context, key string) (chan struct{}, error) {
	for {
		status, entryID, done := g.proofs.CheckAndMark(key)
		switch status {
		case proofcache.StatusNew:
			return done, nil
		case proofcache.StatusConsumed:
			g.logger.Warn("replayed payment proof rejected", "entry", entryID)
			return nil, conduit.NewProtocolError(conduit.CodePaymentRejected,
				"payment proof already consumed", conduit.ErrPaymentRejected)
		case proofcache.StatusInFlight:
			settled, err := g.proofs.WaitForResult(ctx, key, done)
			if err != nil {
				return nil, fmt.Errorf("interrupted waiting for in-flight payment: %v: %w",
					err, conduit.ErrVerifierUnavailable)
			}
			if settled != "" {
				return nil, conduit.NewProtocolError(conduit.CodePaymentRejected,
					"payment proof already consumed", conduit.ErrPaymentRejected)
			}
			// The concurrent attempt failed without consuming the
			// proof; try to claim it ourselves.
		}
	}
}

// settleAndRecord verifies and settles the proof, then writes the ledger
// entry. The entry is written before control returns to the handler chain,
// so usage accounting reflects "payment accepted" regardless of what the
// handler does afterwards.
func (g *Gateway) settleAndRecord(ctx context.Context, res conduit.ResourceDescriptor, proof conduit.PaymentProof) (*Authorization, error) {
	challenge := g.IssueChallenge(res)

	if g.verifier == nil {
		// Demo mode: no facilitator configured. Record a pending,
		// non-billable entry so the usage surface stays live.
		entry := ledger.NewEntry(res.ID, nil)
		g.ledger.Append(entry)
		g.logger.Info("authorized without settlement (demo mode)", "resource", res.ID, "entry", entry.ID)
		return &Authorization{Entry: entry}, nil
	}

	vctx, cancel := context.WithTimeout(ctx, g.verifyTimeout)
	defer cancel()

	if err := g.runBeforeVerify(vctx, res, proof); err != nil {
		return nil, err
	}

	start := time.Now()
	verdict, err := g.verifier.Verify(vctx, proof, challenge)
	if err != nil {
		g.logger.Error("facilitator verify failed", "resource", res.ID, "error", err)
		return nil, fmt.Errorf("verify: %w", wrapUnavailable(err))
	}
	g.runAfterVerify(res, verdict, time.Since(start))

	if !verdict.IsValid {
		// The caller gets a generic rejection; the facilitator's reason
		// stays in the log.
		g.logger.Warn("payment rejected", "resource", res.ID, "reason", verdict.InvalidReason)
		return nil, conduit.NewProtocolError(conduit.CodePaymentRejected,
			"payment verification failed", conduit.ErrPaymentRejected)
	}

	start = time.Now()
	settlement, err := g.verifier.Settle(vctx, proof, challenge)
	if err != nil {
		g.logger.Error("facilitator settle failed", "resource", res.ID, "error", err)
		return nil, fmt.Errorf("settle: %w", wrapUnavailable(err))
	}
	g.runAfterSettle(res, settlement, time.Since(start))

	if !settlement.Success {
		g.logger.Warn("settlement rejected", "resource", res.ID, "reason", settlement.ErrorReason)
		return nil, conduit.NewProtocolError(conduit.CodePaymentRejected,
			"payment settlement failed", conduit.ErrPaymentRejected)
	}

	entry := ledger.NewEntry(res.ID, &ledger.Receipt{
		TxID:   settlement.TxID,
		Status: string(ledger.StatusSettled),
		Payer:  settlement.Payer,
	})
	g.ledger.Append(entry)
	g.logger.Info("payment settled",
		"resource", res.ID, "entry", entry.ID, "tx", settlement.TxID, "payer", settlement.Payer)

	return &Authorization{Entry: entry, Payer: settlement.Payer}, nil
}

// wrapUnavailable folds context deadline/cancellation and transport errors
// into the VerifierUnavailable class unless the error already carries a
// taxonomy class.
func wrapUnavailable(err error) error {
	if conduit.CodeOf(err) != conduit.CodeHandlerFailure {
		return err
	}
	return fmt.Errorf("%v: %w", err, conduit.ErrVerifierUnavailable)
}
