// Package echoware adapts the payment gateway to echo handler chains, for
// embedders serving their catalog from an echo router instead of the stock
// gin server.
package echoware

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/gateway"
)

// PaymentHeader carries the opaque payment proof on requests.
const PaymentHeader = "X-Payment"

// SettlementHeader carries the base64-encoded settlement receipt on
// successful responses.
const SettlementHeader = "X-Payment-Response"

// ContextKey is the echo context key holding the *gateway.Authorization
// after a successful payment.
const ContextKey = "conduit_authorization"

// Payment returns echo middleware gating res behind the payment protocol.
func Payment(g *gateway.Gateway, res conduit.ResourceDescriptor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			proof := conduit.PaymentProof(c.Request().Header.Get(PaymentHeader))

			auth, err := g.Authorize(c.Request().Context(), res, proof)
			if err != nil {
				return respondProtocolError(c, g, res, err)
			}

			if auth.Entry.Receipt != nil {
				if header, encErr := encodeReceipt(auth.Entry.Receipt); encErr == nil {
					c.Response().Header().Set(SettlementHeader, header)
				}
			}
			c.Set(ContextKey, auth)
			return next(c)
		}
	}
}

// Authorization extracts the payment authorization stored by Payment.
func Authorization(c echo.Context) (*gateway.Authorization, bool) {
	auth, ok := c.Get(ContextKey).(*gateway.Authorization)
	return auth, ok
}

func respondProtocolError(c echo.Context, g *gateway.Gateway, res conduit.ResourceDescriptor, err error) error {
	switch {
	case errors.Is(err, conduit.ErrChallengeRequired):
		challenge := g.IssueChallenge(res)
		challenge.Error = PaymentHeader + " header is required"
		return c.JSON(http.StatusPaymentRequired, challenge)
	case errors.Is(err, conduit.ErrPaymentRejected):
		challenge := g.IssueChallenge(res)
		challenge.Error = callerMessage(err, "payment rejected")
		return c.JSON(http.StatusPaymentRequired, challenge)
	case errors.Is(err, conduit.ErrVerifierUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"code":  conduit.CodeVerifierUnavailable,
			"error": "payment verifier unavailable, retry later",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}
}

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
