package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides database operations for the submission audit trail.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Submission represents one transaction submission attempt and its terminal
// outcome.
type Submission struct {
	Signature    string
	Wallet       string
	Operation    string // "stake", "unstake", "harvest", "swap", ...
	Status       string // pipeline status string
	ErrorMessage *string
	Slot         *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordSubmissionParams contains the parameters for recording a submission.
type RecordSubmissionParams struct {
	Signature string
	Wallet    string
	Operation string
	Status    string
}

// RefundRecord represents a compensation transfer issued after a failed
// submission that still deducted funds.
type RefundRecord struct {
	ID                int64
	Signature         string // refund transfer signature
	OriginalSignature *string
	Recipient         string
	Lamports          int64
	Reason            string
	CreatedAt         time.Time
}

// RecordRefundParams contains the parameters for recording a refund.
type RecordRefundParams struct {
	Signature         string
	OriginalSignature *string
	Recipient         string
	Lamports          int64
	Reason            string
}

// RecordSubmission inserts a new submission row.
func (s *Store) RecordSubmission(ctx context.Context, params RecordSubmissionParams) (*Submission, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO submissions (signature, wallet, operation, status)
		VALUES ($1, $2, $3, $4)
		RETURNING signature, wallet, operation, status, error_message, slot, created_at, updated_at`,
		params.Signature, params.Wallet, params.Operation, params.Status,
	)
	return scanSubmission(row)
}

// UpdateSubmissionStatus moves a submission to a new status, optionally
// recording the error message and the slot it landed in.
func (s *Store) UpdateSubmissionStatus(ctx context.Context, signature, status string, errorMessage *string, slot *int64) (*Submission, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE submissions
		SET status = $2, error_message = $3, slot = $4, updated_at = now()
		WHERE signature = $1
		RETURNING signature, wallet, operation, status, error_message, slot, created_at, updated_at`,
		signature, status, pgtextFromStringPtr(errorMessage), pgint8FromInt64Ptr(slot),
	)
	return scanSubmission(row)
}

// GetSubmission retrieves a submission by its signature.
func (s *Store) GetSubmission(ctx context.Context, signature string) (*Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT signature, wallet, operation, status, error_message, slot, created_at, updated_at
		FROM submissions
		WHERE signature = $1`,
		signature,
	)
	return scanSubmission(row)
}

// ListSubmissionsByWallet retrieves submissions for a wallet, most recent
// first.
func (s *Store) ListSubmissionsByWallet(ctx context.Context, wallet string, limit int32) ([]*Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT signature, wallet, operation, status, error_message, slot, created_at, updated_at
		FROM submissions
		WHERE wallet = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}

// RecordRefund inserts a new refund row.
func (s *Store) RecordRefund(ctx context.Context, params RecordRefundParams) (*RefundRecord, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO refunds (signature, original_signature, recipient, lamports, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, signature, original_signature, recipient, lamports, reason, created_at`,
		params.Signature, pgtextFromStringPtr(params.OriginalSignature), params.Recipient, params.Lamports, params.Reason,
	)
	return scanRefund(row)
}

// ListRefundsByRecipient retrieves refunds issued to a recipient, most
// recent first.
func (s *Store) ListRefundsByRecipient(ctx context.Context, recipient string, limit int32) ([]*RefundRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, signature, original_signature, recipient, lamports, reason, created_at
		FROM refunds
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		recipient, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*RefundRecord
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

// SumRefundsByRecipient returns the total lamports refunded to a recipient.
func (s *Store) SumRefundsByRecipient(ctx context.Context, recipient string) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(lamports), 0) FROM refunds WHERE recipient = $1`,
		recipient,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}
	return total, nil
}

// DeleteSubmissionsOlderThan deletes submissions last updated before the
// given time. Refund rows are kept; they are the audit trail.
func (s *Store) DeleteSubmissionsOlderThan(ctx context.Context, before time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM submissions WHERE updated_at < $1`, before)
	if err != nil {
		return fmt.Errorf("failed to delete old submissions: %w", err)
	}
	return nil
}

// Row scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var (
		sub       Submission
		errMsg    pgtype.Text
		slot      pgtype.Int8
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&sub.Signature, &sub.Wallet, &sub.Operation, &sub.Status, &errMsg, &slot, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	sub.ErrorMessage = stringPtrFromPgtext(errMsg)
	sub.Slot = int64PtrFromPgint8(slot)
	sub.CreatedAt = createdAt.Time
	sub.UpdatedAt = updatedAt.Time
	return &sub, nil
}

func scanRefund(row rowScanner) (*RefundRecord, error) {
	var (
		r         RefundRecord
		origSig   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&r.ID, &r.Signature, &origSig, &r.Recipient, &r.Lamports, &r.Reason, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan refund: %w", err)
	}
	r.OriginalSignature = stringPtrFromPgtext(origSig)
	r.CreatedAt = createdAt.Time
	return &r, nil
}

// Helper functions to convert between pgx types and domain types

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgint8FromInt64Ptr(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int64PtrFromPgint8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
