package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-market/conduit"
)

func challengeJSON(errMsg string) string {
	data, _ := json.Marshal(conduit.PaymentChallenge{
		Amount:   "5000",
		Currency: "STX",
		PayTo:    "SP1RECIPIENT",
		Network:  "mainnet",
		Error:    errMsg,
	})
	return string(data)
}

func staticProof(proof string) ProofSource {
	return ProofFunc(func(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error) {
		return conduit.PaymentProof(proof), nil
	})
}

func TestRoundTripperPassesThroughNon402(t *testing.T) {
	var proofCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain"))
	}))
	defer srv.Close()

	c := WrapClient(nil, ProofFunc(func(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error) {
		atomic.AddInt32(&proofCalls, 1)
		return nil, nil
	}))

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, atomic.LoadInt32(&proofCalls), "no challenge, no proof request")
}

func TestRoundTripperPaysChallenge(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			io.WriteString(w, challengeJSON("X-Payment header is required"))
			return
		}
		assert.Equal(t, "signed-proof", r.Header.Get(PaymentHeader))
		assert.Equal(t, int32(2), n, "proof arrives on the second request")
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := WrapClient(nil, staticProof("signed-proof"))
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestRoundTripperReplaysBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			io.WriteString(w, challengeJSON(""))
			return
		}
		assert.JSONEq(t, `{"text":"hello"}`, string(body), "retry carries the original body")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := WrapClient(nil, staticProof("proof"))
	resp, err := c.Post(srv.URL, "application/json", strings.NewReader(`{"text":"hello"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoundTripperSecond402IsTerminal(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, challengeJSON("payment verification failed"))
	}))
	defer srv.Close()

	c := WrapClient(nil, staticProof("rejected-proof"))
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, conduit.ErrPaymentRejected)
	assert.Contains(t, err.Error(), "payment verification failed")
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "exactly one retry")
}

func TestRoundTripperWithoutSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, challengeJSON(""))
	}))
	defer srv.Close()

	c := WrapClient(nil, nil)
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, conduit.ErrChallengeRequired)
}

func TestRoundTripperUndecodableChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := WrapClient(nil, staticProof("proof"))
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undecodable 402 challenge")
}

func TestRoundTripperProofSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, challengeJSON(""))
	}))
	defer srv.Close()

	c := WrapClient(nil, ProofFunc(func(ctx context.Context, challenge conduit.PaymentChallenge) (conduit.PaymentProof, error) {
		return nil, context.DeadlineExceeded
	}))
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining payment proof")
}
