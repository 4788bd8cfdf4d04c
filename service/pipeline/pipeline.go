package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yotlabs/hubclient/service/db"
	"github.com/yotlabs/hubclient/service/metrics"
	hubnats "github.com/yotlabs/hubclient/service/nats"
	"github.com/yotlabs/hubclient/service/pool"
)

// Status is a submission's position in the pipeline.
type Status string

const (
	StatusBuilt     Status = "BUILT"
	StatusSimulated Status = "SIMULATED"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

const (
	// DefaultConfirmTimeout bounds how long Submit waits for a sent
	// transaction to confirm before treating it as expired.
	DefaultConfirmTimeout = 90 * time.Second

	// DefaultConfirmInterval is the signature status polling period.
	DefaultConfirmInterval = 2 * time.Second
)

// Request is one transaction's worth of instructions plus the operation
// label used for auditing and metrics.
type Request struct {
	Operation    string // "stake", "unstake", "harvest", "swap", ...
	Instructions []solana.Instruction
}

// Result is a confirmed submission.
type Result struct {
	Signature solana.Signature
	Slot      uint64
	Status    Status
}

// Store is the audit-trail surface the pipeline needs. *db.Store satisfies
// it; tests substitute mocks.
type Store interface {
	RecordSubmission(ctx context.Context, params db.RecordSubmissionParams) (*db.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, signature, status string, errorMessage *string, slot *int64) (*db.Submission, error)
	RecordRefund(ctx context.Context, params db.RecordRefundParams) (*db.RefundRecord, error)
}

// Submitter drives transactions through build, simulate, send, confirm, and
// compensation. The audit store, event publisher, and refund reserve are all
// optional collaborators; a nil value disables that concern.
type Submitter struct {
	pool      *pool.Pool
	reserve   *Reserve
	store     Store
	publisher hubnats.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithReserve enables balance compensation through the given reserve.
func WithReserve(r *Reserve) SubmitterOption {
	return func(s *Submitter) { s.reserve = r }
}

// WithStore enables the submission audit trail.
func WithStore(store Store) SubmitterOption {
	return func(s *Submitter) { s.store = store }
}

// WithPublisher enables submission lifecycle events.
func WithPublisher(p hubnats.Publisher) SubmitterOption {
	return func(s *Submitter) { s.publisher = p }
}

// WithLogger sets the submitter's logger.
func WithLogger(l *slog.Logger) SubmitterOption {
	return func(s *Submitter) { s.logger = l }
}

// WithMetrics sets the submitter's metrics recorder.
func WithMetrics(m *metrics.Metrics) SubmitterOption {
	return func(s *Submitter) { s.metrics = m }
}

// WithConfirmTimeout overrides the confirmation deadline.
func WithConfirmTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.confirmTimeout = d }
}

// WithConfirmInterval overrides the signature status polling period.
func WithConfirmInterval(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.confirmInterval = d }
}

// NewSubmitter creates a Submitter over the given endpoint pool.
func NewSubmitter(p *pool.Pool, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		pool:            p,
		logger:          slog.Default(),
		confirmTimeout:  DefaultConfirmTimeout,
		confirmInterval: DefaultConfirmInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit drives a request to a terminal state. On success the returned
// Result carries the confirmed signature and slot. On failure the returned
// error is a *SubmissionError whose Kind says what went wrong and whether a
// compensating refund was issued.
func (s *Submitter) Submit(ctx context.Context, signer Signer, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.submit(ctx, signer, req)

	status := string(StatusConfirmed)
	if err != nil {
		status = string(StatusFailed)
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission(req.Operation, status, time.Since(start).Seconds())
	}
	return res, err
}

func (s *Submitter) submit(ctx context.Context, signer Signer, req Request) (*Result, error) {
	if len(req.Instructions) == 0 {
		return nil, newError(KindValidation, "request has no instructions", nil)
	}
	for i, inst := range req.Instructions {
		if inst.ProgramID().IsZero() {
			return nil, newError(KindValidation, fmt.Sprintf("instruction %d has a zero program ID", i), nil)
		}
	}
	payer := signer.PublicKey()
	if payer.IsZero() {
		return nil, newError(KindValidation, "signer has a zero public key", nil)
	}

	tx, err := s.buildTransaction(ctx, req.Instructions, payer)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "transaction built",
		"operation", req.Operation,
		"payer", payer,
	)

	// Snapshot the payer balance before anything is broadcast so a failed
	// submission can be compensated by the observed difference.
	preBalance, preBalanceOK := s.payerBalance(ctx, payer)

	if err := s.simulate(ctx, tx, req.Operation); err != nil {
		return nil, err
	}

	sig, err := s.broadcast(ctx, signer, tx)
	if err != nil && isStaleBlockhash(err) {
		// The blockhash aged out between build and send. Rebuild once with
		// a fresh one; a second expiry means the network is not keeping up
		// and retrying further would loop.
		s.logger.InfoContext(ctx, "blockhash expired, rebuilding transaction",
			"operation", req.Operation,
		)
		if s.metrics != nil {
			s.metrics.RecordBlockhashRebuild(req.Operation)
		}
		tx, err = s.buildTransaction(ctx, req.Instructions, payer)
		if err != nil {
			return nil, err
		}
		sig, err = s.broadcast(ctx, signer, tx)
	}
	if err != nil {
		if se, ok := err.(*SubmissionError); ok {
			return nil, se
		}
		kind := KindExecution
		if pool.Transient(err) {
			kind = KindTransient
		}
		return nil, newError(kind, "failed to send transaction", err)
	}

	s.logger.InfoContext(ctx, "transaction sent",
		"operation", req.Operation,
		"signature", sig,
	)
	s.recordSubmission(ctx, sig, payer, req.Operation, StatusSent, nil, nil)

	st, confirmErr := s.waitForConfirmation(ctx, sig)
	switch {
	case confirmErr != nil:
		if s.metrics != nil {
			s.metrics.RecordConfirmationTimeout(req.Operation)
		}
		expired := newError(KindExpired, "transaction not confirmed before deadline", confirmErr)
		return nil, s.failWithCompensation(ctx, signer, req.Operation, sig, expired, preBalance, preBalanceOK)
	case st.Err != nil:
		execErr := newError(KindExecution, "transaction failed on ledger", ledgerError(st.Err))
		return nil, s.failWithCompensation(ctx, signer, req.Operation, sig, execErr, preBalance, preBalanceOK)
	}

	slot := int64(st.Slot)
	s.recordSubmission(ctx, sig, payer, req.Operation, StatusConfirmed, nil, &slot)
	s.logger.InfoContext(ctx, "transaction confirmed",
		"operation", req.Operation,
		"signature", sig,
		"slot", st.Slot,
	)
	return &Result{Signature: sig, Slot: st.Slot, Status: StatusConfirmed}, nil
}

func (s *Submitter) buildTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, error) {
	blockhash, err := pool.ExecuteT(ctx, s.pool, func(ctx context.Context, conn pool.Conn) (solana.Hash, error) {
		out, err := conn.Client.GetLatestBlockhash(ctx, conn.Commitment)
		if err != nil {
			return solana.Hash{}, err
		}
		return out.Value.Blockhash, nil
	})
	if err != nil {
		return nil, newError(KindTransient, "failed to fetch recent blockhash", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, newError(KindValidation, "failed to build transaction", err)
	}
	return tx, nil
}

func (s *Submitter) payerBalance(ctx context.Context, payer solana.PublicKey) (uint64, bool) {
	balance, err := pool.ExecuteT(ctx, s.pool, func(ctx context.Context, conn pool.Conn) (uint64, error) {
		out, err := conn.Client.GetBalance(ctx, payer, conn.Commitment)
		if err != nil {
			return 0, err
		}
		return out.Value, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "could not snapshot payer balance, compensation disabled for this submission",
			"payer", payer,
			"error", err,
		)
		return 0, false
	}
	return balance, true
}

func (s *Submitter) simulate(ctx context.Context, tx *solana.Transaction, operation string) error {
	resp, err := pool.ExecuteT(ctx, s.pool, func(ctx context.Context, conn pool.Conn) (*rpc.SimulateTransactionResponse, error) {
		return conn.Client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:  false,
			Commitment: conn.Commitment,
		})
	})
	if err != nil {
		return newError(KindTransient, "failed to simulate transaction", err)
	}
	if resp.Value != nil && resp.Value.Err != nil {
		if s.metrics != nil {
			s.metrics.RecordSimulationFailure(operation)
		}
		s.logger.InfoContext(ctx, "simulation rejected transaction",
			"operation", operation,
			"error", resp.Value.Err,
			"logs", resp.Value.Logs,
		)
		return newError(KindSimulation, "simulation rejected transaction", ledgerError(resp.Value.Err))
	}
	return nil
}

// broadcast probes the signer's capabilities and gets the transaction onto
// the wire. Senders handle signing and broadcasting themselves; signers sign
// in place and the endpoint pool broadcasts.
func (s *Submitter) broadcast(ctx context.Context, signer Signer, tx *solana.Transaction) (solana.Signature, error) {
	switch v := signer.(type) {
	case TransactionSender:
		return v.SendTransaction(ctx, tx)
	case TransactionSigner:
		if err := v.SignTransaction(ctx, tx); err != nil {
			return solana.Signature{}, newError(KindUnauthorized, "signer refused to sign", err)
		}
		return pool.ExecuteT(ctx, s.pool, func(ctx context.Context, conn pool.Conn) (solana.Signature, error) {
			return conn.Client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
				SkipPreflight:       true, // already simulated
				PreflightCommitment: conn.Commitment,
			})
		})
	default:
		return solana.Signature{}, newError(KindUnauthorized, "signer supports no known transaction capability", nil)
	}
}

func (s *Submitter) waitForConfirmation(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.confirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			out, err := pool.ExecuteT(ctx, s.pool, func(ctx context.Context, conn pool.Conn) (*rpc.GetSignatureStatusesResult, error) {
				return conn.Client.GetSignatureStatuses(ctx, false, sig)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.DebugContext(ctx, "signature status poll failed", "error", err)
				continue
			}
			if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
				continue // not yet visible
			}
			st := out.Value[0]
			if st.Err != nil {
				return st, nil
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return st, nil
			}
		}
	}
}

// failWithCompensation finishes a failed submission: it records the failure,
// measures how much the payer actually lost, and issues a refund through the
// reserve when one is configured.
func (s *Submitter) failWithCompensation(ctx context.Context, signer Signer, operation string, sig solana.Signature, original *SubmissionError, preBalance uint64, preBalanceOK bool) error {
	payer := signer.PublicKey()
	errMsg := original.Error()
	s.recordSubmission(ctx, sig, payer, operation, StatusFailed, &errMsg, nil)

	if !preBalanceOK {
		return original
	}
	postBalance, ok := s.payerBalance(ctx, payer)
	if !ok {
		return original
	}
	if postBalance >= preBalance {
		return original
	}
	deducted := preBalance - postBalance

	if s.reserve == nil {
		s.logger.WarnContext(ctx, "funds deducted on failed submission but no reserve is configured",
			"payer", payer,
			"deducted_lamports", deducted,
		)
		original.Kind = KindPartialExecution
		return original
	}

	refundSig, refundErr := s.reserve.Refund(ctx, payer, deducted, operation)
	if refundErr != nil {
		if s.metrics != nil {
			s.metrics.RecordRefundFailure(operation)
		}
		s.logger.ErrorContext(ctx, "compensation refund failed",
			"payer", payer,
			"deducted_lamports", deducted,
			"error", refundErr,
		)
		return &SubmissionError{
			Kind:    KindCompensationFailed,
			Message: fmt.Sprintf("refund of %d lamports failed", deducted),
			Err:     original,
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRefundIssued(operation, deducted)
	}
	s.logger.InfoContext(ctx, "compensation refund issued",
		"payer", payer,
		"refunded_lamports", deducted,
		"refund_signature", refundSig,
	)
	s.recordRefund(ctx, refundSig, sig, payer, deducted, operation, original.Kind.String())

	return &SubmissionError{
		Kind:            KindPartialExecution,
		Message:         original.Message,
		Err:             original.Err,
		CompensationSig: refundSig,
	}
}

// recordSubmission writes the audit row and publishes the lifecycle event.
// Both are best effort; an unreachable store or broker never fails a
// submission.
func (s *Submitter) recordSubmission(ctx context.Context, sig solana.Signature, payer solana.PublicKey, operation string, status Status, errMsg *string, slot *int64) {
	if s.store != nil {
		var err error
		if status == StatusSent {
			_, err = s.store.RecordSubmission(ctx, db.RecordSubmissionParams{
				Signature: sig.String(),
				Wallet:    payer.String(),
				Operation: operation,
				Status:    string(status),
			})
		} else {
			_, err = s.store.UpdateSubmissionStatus(ctx, sig.String(), string(status), errMsg, slot)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record submission", "signature", sig, "error", err)
		}
	}

	if s.publisher != nil {
		event := &hubnats.SubmissionEvent{
			Signature:   sig.String(),
			Wallet:      payer.String(),
			Operation:   operation,
			Status:      string(status),
			Slot:        slot,
			PublishedAt: time.Now().UTC(),
		}
		if errMsg != nil {
			event.ErrorMessage = *errMsg
		}
		if err := s.publisher.PublishSubmission(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish submission event", "signature", sig, "error", err)
		}
	}
}

func (s *Submitter) recordRefund(ctx context.Context, refundSig, originalSig solana.Signature, recipient solana.PublicKey, lamports uint64, operation, reason string) {
	if s.store != nil {
		orig := originalSig.String()
		_, err := s.store.RecordRefund(ctx, db.RecordRefundParams{
			Signature:         refundSig.String(),
			OriginalSignature: &orig,
			Recipient:         recipient.String(),
			Lamports:          int64(lamports),
			Reason:            reason,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record refund", "signature", refundSig, "error", err)
		}
	}

	if s.publisher != nil {
		event := &hubnats.SubmissionEvent{
			Signature:       originalSig.String(),
			Wallet:          recipient.String(),
			Operation:       operation,
			Status:          string(StatusFailed),
			RefundSignature: refundSig.String(),
			RefundLamports:  int64(lamports),
			PublishedAt:     time.Now().UTC(),
		}
		if err := s.publisher.PublishSubmission(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish refund event", "signature", refundSig, "error", err)
		}
	}
}

// ledgerError wraps the untyped error value the RPC layer returns for
// on-ledger failures.
func ledgerError(v interface{}) error {
	return fmt.Errorf("%v", v)
}

// isStaleBlockhash matches the RPC error for a transaction whose blockhash
// is no longer in the recent window.
func isStaleBlockhash(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blockhash not found") || strings.Contains(msg, "blockhashnotfound")
}
