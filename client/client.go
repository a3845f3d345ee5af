// Package client implements the caller side of the payment protocol: an
// http.RoundTripper that consumes a 402 challenge, obtains a payment proof,
// and resubmits the original request with the proof attached — at most one
// automatic retry per call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/conduit-market/conduit"
)

// PaymentHeader carries the payment proof on retried requests. Must match
// the header the gateway middleware reads.
const PaymentHeader = "X-Payment"

// SettlementHeader is where the marketplace returns the settlement receipt
// on paid responses.
const SettlementHeader = "X-Payment-Response"

// ProofSource produces a payment proof satisfying a challenge. How the
// proof is constructed (wallet signing, facilitator interaction) is outside
// this package; the round tripper only attaches the result.
type ProofSource interface {
	Proof(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error)
}

// ProofFunc adapts a function to the ProofSource interface.
type ProofFunc func(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error)

// Proof implements ProofSource.
func (f ProofFunc) Proof(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error) {
	return f(ctx, challenge)
}

// WrapClient wraps an HTTP client so its requests transparently pay 402
// challenges using source. A nil client wraps http.DefaultClient.
func WrapClient(client *http.Client, source ProofSource) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &PaymentRoundTripper{Transport: transport, Source: source}
	return client
}

// PaymentRoundTripper implements http.RoundTripper with 402 challenge
// handling. Responses other than 402 pass through untouched.
type PaymentRoundTripper struct {
	Transport http.RoundTripper
	Source    ProofSource
}

// RoundTrip sends the request; on a 402 it parses the challenge, obtains a
// proof and retries exactly once. A second 402 is terminal: the challenge's
// rejection reason is surfaced as an error wrapping
// conduit.ErrPaymentRejected.
func (t *PaymentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	challenge, err := readChallenge(resp)
	if err != nil {
		return nil, err
	}

	if t.Source == nil {
		return nil, fmt.Errorf("no proof source configured for challenge (%s %s): %w",
			challenge.Amount, challenge.Currency, conduit.ErrChallengeRequired)
	}

	ctx := req.Context()
	proof, err := t.Source.Proof(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("obtaining payment proof: %w", err)
	}

	retry, err := cloneRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set(PaymentHeader, string(proof))

	resp, err = t.Transport.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		challenge, rerr := readChallenge(resp)
		reason := "proof not accepted"
		if rerr == nil && challenge.Error != "" {
			reason = challenge.Error
		}
		return nil, fmt.Errorf("payment retry failed: %s: %w", reason, conduit.ErrPaymentRejected)
	}
	return resp, nil
}

// readChallenge decodes a 402 response body and closes it.
func readChallenge(resp *http.Response) (conduit.PaymentChallenge, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return conduit.PaymentChallenge{}, fmt.Errorf("failed to read 402 response body: %w", err)
	}
	var challenge conduit.PaymentChallenge
	if err := json.Unmarshal(body, &challenge); err != nil {
		return conduit.PaymentChallenge{}, fmt.Errorf("undecodable 402 challenge: %w", err)
	}
	return challenge, nil
}

// cloneRequest rebuilds the original request for the paid retry, replaying
// the body via GetBody when one was sent.
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	retry := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry request with unreplayable body")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}
