package conduit

import "errors"

// Sentinel errors forming the gateway's error taxonomy. Callers classify
// outcomes with errors.Is; each class maps to a distinct HTTP status.
var (
	// ErrChallengeRequired indicates the request carried no payment proof.
	// Recoverable: the caller retries with proof. This is the expected
	// steady state for first contact with a priced resource.
	ErrChallengeRequired = errors.New("conduit: payment required")

	// ErrPaymentRejected indicates a proof was presented but the
	// facilitator declined it, or the gateway has already consumed it.
	// Recoverable by presenting a valid proof.
	ErrPaymentRejected = errors.New("conduit: payment rejected")

	// ErrVerifierUnavailable indicates the facilitator could not be
	// reached or timed out. Transient; never results in a ledger write.
	ErrVerifierUnavailable = errors.New("conduit: payment verifier unavailable")

	// ErrResourceNotFound indicates an unregistered resource id or path.
	ErrResourceNotFound = errors.New("conduit: resource not found")
)

// ErrorCode identifies a protocol error class for wire responses.
type ErrorCode string

const (
	CodeChallengeRequired   ErrorCode = "payment_required"
	CodePaymentRejected     ErrorCode = "payment_rejected"
	CodeVerifierUnavailable ErrorCode = "verifier_unavailable"
	CodeResourceNotFound    ErrorCode = "resource_not_found"
	CodeHandlerFailure      ErrorCode = "handler_failure"
)

// ProtocolError carries an error class plus a caller-safe message. Internal
// verifier detail stays in the wrapped error and is logged, never sent to
// the caller.
type ProtocolError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError wraps err with a code and a caller-safe message.
func NewProtocolError(code ErrorCode, message string, err error) *ProtocolError {
	return &ProtocolError{Code: code, Message: message, Err: err}
}

// CodeOf returns the wire code for err, defaulting to handler_failure for
// anything outside the gateway taxonomy.
func CodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrChallengeRequired):
		return CodeChallengeRequired
	case errors.Is(err, ErrPaymentRejected):
		return CodePaymentRejected
	case errors.Is(err, ErrVerifierUnavailable):
		return CodeVerifierUnavailable
	case errors.Is(err, ErrResourceNotFound):
		return CodeResourceNotFound
	default:
		return CodeHandlerFailure
	}
}
