package pipeline

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Kind classifies a submission failure so callers can branch on it.
type Kind int

const (
	// KindTransient means every endpoint failed on a retryable error; the
	// operation may succeed if repeated.
	KindTransient Kind = iota + 1

	// KindValidation means the request was rejected locally before anything
	// reached the network.
	KindValidation

	// KindSimulation means the ledger's dry run rejected the transaction;
	// nothing was broadcast.
	KindSimulation

	// KindExecution means the transaction landed on the ledger and the
	// program rejected it.
	KindExecution

	// KindExpired means the transaction never confirmed before its
	// blockhash aged out or the confirmation window closed.
	KindExpired

	// KindPartialExecution means the submission failed after funds were
	// deducted; a compensating refund was issued.
	KindPartialExecution

	// KindCompensationFailed means the submission failed, funds were
	// deducted, and the refund transfer also failed. Manual intervention
	// is required.
	KindCompensationFailed

	// KindUnauthorized means the signer lacks a capability or permission
	// the operation needs.
	KindUnauthorized
)

// String returns a stable lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindSimulation:
		return "simulation"
	case KindExecution:
		return "execution"
	case KindExpired:
		return "expired"
	case KindPartialExecution:
		return "partial_execution"
	case KindCompensationFailed:
		return "compensation_failed"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// SubmissionError is the structured failure returned by Submit. It carries
// the failure class, the underlying cause, and the refund signature when a
// compensating transfer landed.
type SubmissionError struct {
	Kind            Kind
	Message         string
	Err             error
	CompensationSig solana.Signature
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if !e.CompensationSig.IsZero() {
		msg = fmt.Sprintf("%s (refunded in %s)", msg, e.CompensationSig)
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain, or 0 when the error
// is not a SubmissionError.
func KindOf(err error) Kind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func newError(kind Kind, message string, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Message: message, Err: err}
}
