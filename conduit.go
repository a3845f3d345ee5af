// Package conduit defines the core types of the Conduit pay-per-call API
// marketplace: priced resource descriptors, the 402 payment challenge, the
// opaque payment proof, and the verification/settlement results exchanged
// with the payment facilitator.
package conduit

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Price is a human-readable decimal amount in a given currency,
// e.g. {Amount: "0.005", Currency: "STX"}.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ResourceDescriptor describes a single priced resource in the catalog.
// Descriptors are built at startup and never mutated.
type ResourceDescriptor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Icon        string            `json:"icon,omitempty"`
	Price       Price             `json:"pricing"`
	Method      string            `json:"method"`
	Path        string            `json:"endpoint"`
	Params      map[string]string `json:"params,omitempty"`
	ParamSchema json.RawMessage   `json:"-"`
	Latency     string            `json:"latency,omitempty"`
	Uptime      string            `json:"uptime,omitempty"`
}

// Free reports whether the resource is accessible without payment.
func (r ResourceDescriptor) Free() bool {
	return r.Price.Amount == "" || r.Price.Amount == "0"
}

// PaymentChallenge is the 402 response body describing the payment terms for
// a resource. Challenges are stateless: recomputed for every rejected
// request, deterministic given the resource's price.
type PaymentChallenge struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	PayTo       string `json:"payTo"`
	Network     string `json:"network"`
	Facilitator string `json:"facilitator"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

// PaymentProof is the caller-supplied evidence of payment. It is opaque to
// the gateway: carried as-is from the X-Payment request header to the
// facilitator.
type PaymentProof []byte

// VerifyResult is the facilitator's answer to a verification request.
type VerifyResult struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResult is the facilitator's answer to a settlement request.
// TxID identifies the on-chain transaction and becomes the ledger receipt.
type SettleResult struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	TxID        string `json:"txId"`
	Payer       string `json:"payer,omitempty"`
	Network     string `json:"network"`
}

// microUnitDecimals is the exponent between the display currency and its
// base unit (1 STX = 1e6 microSTX).
const microUnitDecimals = 6

// ToBaseUnits converts a decimal amount string into base units.
// e.g. "0.005" -> "5000".
func ToBaseUnits(amount string) (string, error) {
	f, ok := new(big.Float).SetPrec(256).SetString(amount)
	if !ok {
		return "", fmt.Errorf("invalid amount %q", amount)
	}
	if f.Sign() < 0 {
		return "", fmt.Errorf("negative amount %q", amount)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(microUnitDecimals), nil)
	scaled, _ := new(big.Float).Mul(f, new(big.Float).SetPrec(256).SetInt(scale)).Int(nil)
	return scaled.String(), nil
}
