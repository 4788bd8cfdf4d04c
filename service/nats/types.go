package nats

import (
	"time"

	"github.com/yotlabs/hubclient/service/db"
)

// SubmissionEvent represents a submission lifecycle event published to NATS.
// This is published to the subject "submissions.{wallet}" in JetStream.
type SubmissionEvent struct {
	// Submission identifiers
	Signature string `json:"signature"`
	Wallet    string `json:"wallet"`

	// What was submitted and where it ended up
	Operation string `json:"operation"` // "stake", "unstake", "harvest", "swap", ...
	Status    string `json:"status"`    // pipeline status string
	Slot      *int64 `json:"slot,omitempty"`

	// Failure details
	ErrorMessage    string `json:"error_message,omitempty"`
	RefundSignature string `json:"refund_signature,omitempty"`
	RefundLamports  int64  `json:"refund_lamports,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromDBSubmission converts a stored submission to a SubmissionEvent for
// publishing.
func FromDBSubmission(sub *db.Submission) *SubmissionEvent {
	event := &SubmissionEvent{
		Signature:   sub.Signature,
		Wallet:      sub.Wallet,
		Operation:   sub.Operation,
		Status:      sub.Status,
		Slot:        sub.Slot,
		PublishedAt: time.Now().UTC(),
	}
	if sub.ErrorMessage != nil {
		event.ErrorMessage = *sub.ErrorMessage
	}
	return event
}
