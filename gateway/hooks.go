package gateway

import (
	"context"
	"time"

	"github.com/conduit-market/conduit"
)

// BeforeVerifyHook runs before the facilitator verify call. A non-nil
// error aborts the authorization before any network I/O; the error is
// surfaced to the caller unchanged, so hooks should return taxonomy errors.
type BeforeVerifyHook func(ctx context.Context, res conduit.ResourceDescriptor, proof conduit.PaymentProof) error

// AfterVerifyHook observes a completed verify round trip. Errors are not
// possible: observers must not affect the outcome.
type AfterVerifyHook func(res conduit.ResourceDescriptor, verdict *conduit.VerifyResult, elapsed time.Duration)

// AfterSettleHook observes a completed settle round trip.
type AfterSettleHook func(res conduit.ResourceDescriptor, settlement *conduit.SettleResult, elapsed time.Duration)

// Option customizes a Gateway at construction time.
type Option func(*Gateway)

// WithBeforeVerifyHook registers a hook to run before payment verification.
func WithBeforeVerifyHook(hook BeforeVerifyHook) Option {
	return func(g *Gateway) {
		g.beforeVerifyHooks = append(g.beforeVerifyHooks, hook)
	}
}

// WithAfterVerifyHook registers an observer for verify outcomes.
func WithAfterVerifyHook(hook AfterVerifyHook) Option {
	return func(g *Gateway) {
		g.afterVerifyHooks = append(g.afterVerifyHooks, hook)
	}
}

// WithAfterSettleHook registers an observer for settlement outcomes.
func WithAfterSettleHook(hook AfterSettleHook) Option {
	return func(g *Gateway) {
		g.afterSettleHooks = append(g.afterSettleHooks, hook)
	}
}

func (g *Gateway) runBeforeVerify(ctx context.Context, res conduit.ResourceDescriptor, proof conduit.PaymentProof) error {
	for _, hook := range g.beforeVerifyHooks {
		if err := hook(ctx, res, proof); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) runAfterVerify(res conduit.ResourceDescriptor, verdict *conduit.VerifyResult, elapsed time.Duration) {
	for _, hook := range g.afterVerifyHooks {
		hook(res, verdict, elapsed)
	}
}

func (g *Gateway) runAfterSettle(res conduit.ResourceDescriptor, settlement *conduit.SettleResult, elapsed time.Duration) {
	for _, hook := range g.afterSettleHooks {
		hook(res, settlement, elapsed)
	}
}
