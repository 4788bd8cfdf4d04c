package solana

import (
	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs
var (
	// SystemProgramID is the native SOL transfer program
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// StakeAccountSnapshot is a point-in-time read of a user's on-ledger staking
// account. It is never cached beyond a single query lifecycle: the ledger is
// authoritative and the account changes out-of-band.
type StakeAccountSnapshot struct {
	Owner           solana.PublicKey
	StakedAmount    uint64
	StartTimestamp  int64
	LastHarvestTime int64
	TotalHarvested  uint64
}

// ProgramRateState is the staking program's global parameter account.
// It is read-only from the client's perspective; only an authorized
// update-parameters operation mutates it.
type ProgramRateState struct {
	Admin                solana.PublicKey
	StakeMint            solana.PublicKey
	RewardMint           solana.PublicKey
	StakeRateBasisPoints uint64
	HarvestThreshold     uint64
}
