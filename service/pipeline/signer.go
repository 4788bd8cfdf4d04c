package pipeline

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer identifies a fee payer. Concrete signers additionally implement one
// of the capability interfaces below; Submit probes for them in order and
// uses the first match: TransactionSender, then TransactionSigner.
type Signer interface {
	PublicKey() solana.PublicKey
}

// TransactionSender signs and broadcasts a transaction itself, returning the
// signature. Wallet adapters and remote signing services fit here; the
// pipeline hands over the unsigned transaction and takes back a signature
// to confirm.
type TransactionSender interface {
	Signer
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// TransactionSigner signs a transaction in place; the pipeline broadcasts it
// through the endpoint pool.
type TransactionSigner interface {
	Signer
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// SignAndSender combines both capabilities. Submit treats it as a
// TransactionSender since that interface is probed first.
type SignAndSender interface {
	TransactionSender
	TransactionSigner
}

// LocalSigner signs with an in-memory private key. It implements
// TransactionSigner only, so the pipeline does the broadcasting.
type LocalSigner struct {
	key solana.PrivateKey
}

// NewLocalSigner wraps an existing private key.
func NewLocalSigner(key solana.PrivateKey) (*LocalSigner, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("private key is empty")
	}
	return &LocalSigner{key: key}, nil
}

// LocalSignerFromFile loads a solana-keygen JSON keypair file.
func LocalSignerFromFile(path string) (*LocalSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &LocalSigner{key: key}, nil
}

// PublicKey returns the signer's public key.
func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransaction signs the transaction for the signer's key.
func (s *LocalSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
