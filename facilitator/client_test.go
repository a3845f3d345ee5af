package facilitator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-market/conduit"
)

var testChallenge = conduit.PaymentChallenge{
	Amount:   "5000",
	Currency: "STX",
	PayTo:    "SP1RECIPIENT",
	Network:  "mainnet",
}

func TestClientVerify(t *testing.T) {
	t.Run("valid proof", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/verify", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req paymentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "proof-bytes", req.PaymentProof)
			assert.Equal(t, "5000", req.PaymentRequirements.Amount)

			json.NewEncoder(w).Encode(conduit.VerifyResult{IsValid: true, Payer: "SP2PAYER"})
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		result, err := c.Verify(context.Background(), conduit.PaymentProof("proof-bytes"), testChallenge)
		require.NoError(t, err)
		assert.True(t, result.IsValid)
		assert.Equal(t, "SP2PAYER", result.Payer)
	})

	t.Run("rejection with reason is a verdict, not an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(conduit.VerifyResult{IsValid: false, InvalidReason: "signature mismatch"})
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		result, err := c.Verify(context.Background(), conduit.PaymentProof("bad"), testChallenge)
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.Equal(t, "signature mismatch", result.InvalidReason)
	})

	t.Run("bare 500 maps to verifier unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		_, err := c.Verify(context.Background(), conduit.PaymentProof("proof"), testChallenge)
		assert.ErrorIs(t, err, conduit.ErrVerifierUnavailable)
	})

	t.Run("unreachable facilitator maps to verifier unavailable", func(t *testing.T) {
		c := NewClient(&Config{URL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
		_, err := c.Verify(context.Background(), conduit.PaymentProof("proof"), testChallenge)
		assert.ErrorIs(t, err, conduit.ErrVerifierUnavailable)
	})

	t.Run("context cancellation aborts the request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Consume the body so the server notices the disconnect.
			io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c := NewClient(&Config{URL: srv.URL})
		_, err := c.Verify(ctx, conduit.PaymentProof("proof"), testChallenge)
		require.Error(t, err)
		assert.ErrorIs(t, err, conduit.ErrVerifierUnavailable)
	})
}

func TestClientSettle(t *testing.T) {
	t.Run("successful settlement", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/settle", r.URL.Path)
			json.NewEncoder(w).Encode(conduit.SettleResult{
				Success: true,
				TxID:    "0xfeedface",
				Payer:   "SP2PAYER",
				Network: "mainnet",
			})
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		result, err := c.Settle(context.Background(), conduit.PaymentProof("proof"), testChallenge)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "0xfeedface", result.TxID)
	})

	t.Run("settlement failure with reason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(conduit.SettleResult{Success: false, ErrorReason: "insufficient funds"})
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		result, err := c.Settle(context.Background(), conduit.PaymentProof("proof"), testChallenge)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "insufficient funds", result.ErrorReason)
	})

	t.Run("undecodable body maps to verifier unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway timeout</html>"))
		}))
		defer srv.Close()

		c := NewClient(&Config{URL: srv.URL})
		_, err := c.Settle(context.Background(), conduit.PaymentProof("proof"), testChallenge)
		assert.ErrorIs(t, err, conduit.ErrVerifierUnavailable)
	})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, DefaultURL, c.URL())

	c = NewClient(&Config{URL: "http://localhost:9999"})
	assert.Equal(t, "http://localhost:9999", c.URL())
}
