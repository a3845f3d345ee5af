// Package ginware adapts the payment gateway to gin handler chains. It is a
// thin translation layer: all verification, settlement and ledger logic
// lives in the gateway package.
package ginware

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/gateway"
)

// PaymentHeader carries the opaque payment proof on requests.
const PaymentHeader = "X-Payment"

// SettlementHeader carries the base64-encoded settlement receipt on
// successful responses.
const SettlementHeader = "X-Payment-Response"

// ContextKey is the gin context key holding the *gateway.Authorization
// after a successful payment.
const ContextKey = "conduit_authorization"

// Payment returns gin middleware gating res behind the payment protocol.
// Free resources should not be wrapped; the gateway does not apply to them.
func Payment(g *gateway.Gateway, res conduit.ResourceDescriptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		proof := conduit.PaymentProof(c.GetHeader(PaymentHeader))

		auth, err := g.Authorize(c.Request.Context(), res, proof)
		if err != nil {
			abortWithProtocolError(c, g, res, err)
			return
		}

		if auth.Entry.Receipt != nil {
			if header, err := encodeReceipt(auth.Entry.Receipt); err == nil {
				c.Header(SettlementHeader, header)
			}
		}
		c.Set(ContextKey, auth)
		c.Next()
	}
}

// Authorization extracts the payment authorization stored by Payment.
func Authorization(c *gin.Context) (*gateway.Authorization, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	auth, ok := v.(*gateway.Authorization)
	return auth, ok
}

func abortWithProtocolError(c *gin.Context, g *gateway.Gateway, res conduit.ResourceDescriptor, err error) {
	switch {
	case errors.Is(err, conduit.ErrChallengeRequired):
		challenge := g.IssueChallenge(res)
		challenge.Error = PaymentHeader + " header is required"
		c.AbortWithStatusJSON(http.StatusPaymentRequired, challenge)
	case errors.Is(err, conduit.ErrPaymentRejected):
		challenge := g.IssueChallenge(res)
		challenge.Error = callerMessage(err, "payment rejected")
		c.AbortWithStatusJSON(http.StatusPaymentRequired, challenge)
	case errors.Is(err, conduit.ErrVerifierUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"code":  conduit.CodeVerifierUnavailable,
			"error": "payment verifier unavailable, retry later",
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal error",
		})
	}
}

// callerMessage returns the caller-safe message of a ProtocolError, or the
// fallback when the error carries no structured message.
func callerMessage(err error, fallback string) string {
	var perr *conduit.ProtocolError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return fallback
}

func encodeReceipt(receipt interface{}) (string, error) {
	data, err := json.Marshal(receipt)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
