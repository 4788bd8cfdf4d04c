package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/yotlabs/hubclient/service/pool"
)

const (
	// refundConfirmTimeout bounds how long a refund waits to confirm. Kept
	// shorter than the submission window; an unconfirmed refund is reported
	// as a compensation failure and retried by the operator.
	refundConfirmTimeout = 60 * time.Second

	refundConfirmInterval = 2 * time.Second
)

// Reserve issues compensating transfers from a dedicated refund account.
// Refunds are serialized: concurrent failed submissions would otherwise race
// on the reserve's blockhash and balance.
type Reserve struct {
	signer TransactionSigner
	pool   *pool.Pool
	logger *slog.Logger
	mu     sync.Mutex
}

// NewReserve creates a Reserve that signs refunds with the given signer.
func NewReserve(signer TransactionSigner, p *pool.Pool, logger *slog.Logger) (*Reserve, error) {
	if signer == nil {
		return nil, fmt.Errorf("reserve signer is nil")
	}
	if signer.PublicKey().IsZero() {
		return nil, fmt.Errorf("reserve signer has a zero public key")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reserve{signer: signer, pool: p, logger: logger}, nil
}

// PublicKey returns the reserve account's address.
func (r *Reserve) PublicKey() solana.PublicKey {
	return r.signer.PublicKey()
}

// Refund transfers exactly lamports from the reserve to the recipient and
// waits for the transfer to confirm.
func (r *Reserve) Refund(ctx context.Context, recipient solana.PublicKey, lamports uint64, operation string) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, fmt.Errorf("refund amount is zero")
	}
	if recipient.IsZero() {
		return solana.Signature{}, fmt.Errorf("refund recipient is zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	blockhash, err := pool.ExecuteT(ctx, r.pool, func(ctx context.Context, conn pool.Conn) (solana.Hash, error) {
		out, err := conn.Client.GetLatestBlockhash(ctx, conn.Commitment)
		if err != nil {
			return solana.Hash{}, err
		}
		return out.Value.Blockhash, nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to fetch blockhash for refund: %w", err)
	}

	transfer := system.NewTransferInstruction(lamports, r.signer.PublicKey(), recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		blockhash,
		solana.TransactionPayer(r.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build refund transaction: %w", err)
	}
	if err := r.signer.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign refund transaction: %w", err)
	}

	sig, err := pool.ExecuteT(ctx, r.pool, func(ctx context.Context, conn pool.Conn) (solana.Signature, error) {
		return conn.Client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: conn.Commitment,
		})
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send refund transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "refund sent, awaiting confirmation",
		"recipient", recipient,
		"lamports", lamports,
		"operation", operation,
		"signature", sig,
	)

	if err := r.confirm(ctx, sig); err != nil {
		return sig, fmt.Errorf("refund %s did not confirm: %w", sig, err)
	}
	return sig, nil
}

func (r *Reserve) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, refundConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(refundConfirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			out, err := pool.ExecuteT(ctx, r.pool, func(ctx context.Context, conn pool.Conn) (*rpc.GetSignatureStatusesResult, error) {
				return conn.Client.GetSignatureStatuses(ctx, false, sig)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
				continue
			}
			st := out.Value[0]
			if st.Err != nil {
				return fmt.Errorf("refund transfer failed on ledger: %v", st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}
