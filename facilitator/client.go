// Package facilitator implements the HTTP client for the external payment
// facilitator, the service that authenticates payment proofs and settles
// them on-chain. The gateway only ever sees its pass/fail verdicts and
// settlement receipts.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conduit-market/conduit"
)

// DefaultURL is the public Stacks x402 facilitator.
const DefaultURL = "https://x402-facilitator.x402stacks.xyz"

// defaultTimeout bounds a single verify or settle round trip.
const defaultTimeout = 30 * time.Second

// Config configures the facilitator client.
type Config struct {
	// URL is the base URL of the facilitator service.
	URL string

	// HTTPClient overrides the default client (optional).
	HTTPClient *http.Client

	// Timeout per request (optional, defaults to 30s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration
}

// Client talks to a remote facilitator over HTTP. It implements the
// gateway's Verifier contract.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a facilitator client from config. A nil config selects
// the public facilitator with default timeouts.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	url := config.URL
	if url == "" {
		url = DefaultURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{url: url, httpClient: httpClient}
}

// URL returns the facilitator base URL, for inclusion in challenges.
func (c *Client) URL() string { return c.url }

type paymentRequest struct {
	PaymentProof        string                   `json:"paymentProof"`
	PaymentRequirements conduit.PaymentChallenge `json:"paymentRequirements"`
}

// Verify asks the facilitator whether proof satisfies the challenge.
// Transport failures, timeouts and undecodable responses map to
// ErrVerifierUnavailable; a decodable rejection comes back as a result with
// IsValid false.
func (c *Client) Verify(ctx context.Context, proof conduit.PaymentProof, challenge conduit.PaymentChallenge) (*conduit.VerifyResult, error) {
	body, status, err := c.post(ctx, "/verify", proof, challenge)
	if err != nil {
		return nil, err
	}

	var result conduit.VerifyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("facilitator verify returned undecodable body (%d): %w", status, conduit.ErrVerifierUnavailable)
	}
	// Non-200 with a decoded verdict is a rejection, not an outage.
	if status != http.StatusOK && result.InvalidReason == "" {
		return nil, fmt.Errorf("facilitator verify failed (%d): %w", status, conduit.ErrVerifierUnavailable)
	}
	return &result, nil
}

// Settle asks the facilitator to execute the payment. Error mapping matches
// Verify.
func (c *Client) Settle(ctx context.Context, proof conduit.PaymentProof, challenge conduit.PaymentChallenge) (*conduit.SettleResult, error) {
	body, status, err := c.post(ctx, "/settle", proof, challenge)
	if err != nil {
		return nil, err
	}

	var result conduit.SettleResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("facilitator settle returned undecodable body (%d): %w", status, conduit.ErrVerifierUnavailable)
	}
	if status != http.StatusOK && result.ErrorReason == "" {
		return nil, fmt.Errorf("facilitator settle failed (%d): %w", status, conduit.ErrVerifierUnavailable)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, proof conduit.PaymentProof, challenge conduit.PaymentChallenge) ([]byte, int, error) {
	payload, err := json.Marshal(paymentRequest{
		PaymentProof:        string(proof),
		PaymentRequirements: challenge,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal facilitator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create facilitator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("facilitator request failed: %v: %w", err, conduit.ErrVerifierUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read facilitator response: %v: %w", err, conduit.ErrVerifierUnavailable)
	}
	return body, resp.StatusCode, nil
}
