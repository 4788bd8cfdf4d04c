package instructions

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MaxStakeRateBasisPoints bounds the rate parameter accepted by
// update-parameters. The program stores the rate in a u64 but rates past
// 100x the reference calibration are operator error, not intent; rejecting
// locally produces a clearer failure than an on-ledger rejection.
const MaxStakeRateBasisPoints = 1_000_000

// StakeAccounts names the caller-supplied addresses for a stake operation.
// Sysvar and token-program accounts are appended by the constructor.
type StakeAccounts struct {
	Owner             solana.PublicKey
	OwnerStakeToken   solana.PublicKey
	ProgramStakeToken solana.PublicKey
	StakingAccount    solana.PublicKey
	ProgramState      solana.PublicKey
}

// NewStake builds a stake instruction moving amount raw units from the
// owner's token account into the program vault.
func NewStake(programID solana.PublicKey, acc StakeAccounts, amount uint64) (*solana.GenericInstruction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("stake amount must be greater than zero")
	}

	return Encode(programID, Operation{
		Version: VersionStaking,
		Op:      OpStake,
		Args:    []Value{U64(amount)},
		Accounts: []solana.PublicKey{
			acc.Owner,
			acc.OwnerStakeToken,
			acc.ProgramStakeToken,
			acc.StakingAccount,
			acc.ProgramState,
			solana.TokenProgramID,
			solana.SystemProgramID,
			solana.SysVarClockPubkey,
		},
	})
}

// UnstakeAccounts names the caller-supplied addresses for an unstake
// operation.
type UnstakeAccounts struct {
	Owner             solana.PublicKey
	OwnerStakeToken   solana.PublicKey
	ProgramStakeToken solana.PublicKey
	StakingAccount    solana.PublicKey
	ProgramState      solana.PublicKey
	ProgramAuthority  solana.PublicKey
}

// NewUnstake builds an unstake instruction returning amount raw units from
// the program vault to the owner's token account.
func NewUnstake(programID solana.PublicKey, acc UnstakeAccounts, amount uint64) (*solana.GenericInstruction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("unstake amount must be greater than zero")
	}

	return Encode(programID, Operation{
		Version: VersionStaking,
		Op:      OpUnstake,
		Args:    []Value{U64(amount)},
		Accounts: []solana.PublicKey{
			acc.Owner,
			acc.OwnerStakeToken,
			acc.ProgramStakeToken,
			acc.StakingAccount,
			acc.ProgramState,
			solana.TokenProgramID,
			acc.ProgramAuthority,
			solana.SysVarClockPubkey,
		},
	})
}

// HarvestAccounts names the caller-supplied addresses for a harvest
// operation. The account order matches the program's harvest handler.
type HarvestAccounts struct {
	Owner              solana.PublicKey
	OwnerRewardToken   solana.PublicKey
	ProgramRewardToken solana.PublicKey
	StakingAccount     solana.PublicKey
	ProgramState       solana.PublicKey
	ProgramAuthority   solana.PublicKey
}

// NewHarvest builds a harvest instruction. The reward amount is computed
// on-ledger from the staking account and the current rate; no fields are
// carried in the payload.
func NewHarvest(programID solana.PublicKey, acc HarvestAccounts) (*solana.GenericInstruction, error) {
	return Encode(programID, Operation{
		Version: VersionStaking,
		Op:      OpHarvest,
		Accounts: []solana.PublicKey{
			acc.Owner,
			acc.OwnerRewardToken,
			acc.ProgramRewardToken,
			acc.StakingAccount,
			acc.ProgramState,
			solana.TokenProgramID,
			acc.ProgramAuthority,
			solana.SysVarClockPubkey,
		},
	})
}

// NewUpdateParameters builds the admin-only instruction that replaces the
// program's stake rate and harvest threshold.
func NewUpdateParameters(programID, admin, programState solana.PublicKey, rateBasisPoints, harvestThreshold uint64) (*solana.GenericInstruction, error) {
	if rateBasisPoints > MaxStakeRateBasisPoints {
		return nil, fmt.Errorf("stake rate %d basis points exceeds maximum %d", rateBasisPoints, MaxStakeRateBasisPoints)
	}

	return Encode(programID, Operation{
		Version:  VersionStaking,
		Op:       OpUpdateParameters,
		Args:     []Value{U64(rateBasisPoints), U64(harvestThreshold)},
		Accounts: []solana.PublicKey{admin, programState},
	})
}

// SwapAccounts names the caller-supplied addresses for a swap operation.
type SwapAccounts struct {
	User            solana.PublicKey
	UserTokenIn     solana.PublicKey
	UserTokenOut    solana.PublicKey
	UserRewardToken solana.PublicKey
	ProgramState    solana.PublicKey
	LiquidityPool   solana.PublicKey
	AdminFeeAccount solana.PublicKey
}

// NewSwap builds a swap instruction exchanging amountIn raw units of the
// input token for at least minAmountOut of the output token.
func NewSwap(programID solana.PublicKey, acc SwapAccounts, amountIn, minAmountOut uint64) (*solana.GenericInstruction, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("swap input amount must be greater than zero")
	}

	return Encode(programID, Operation{
		Version: VersionSwap,
		Op:      OpSwapToken,
		Args:    []Value{U64(amountIn), U64(minAmountOut)},
		Accounts: []solana.PublicKey{
			acc.User,
			acc.UserTokenIn,
			acc.UserTokenOut,
			acc.UserRewardToken,
			acc.ProgramState,
			acc.LiquidityPool,
			acc.AdminFeeAccount,
			solana.TokenProgramID,
		},
	})
}
