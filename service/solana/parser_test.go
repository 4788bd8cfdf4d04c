package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStakeAccount_RoundTrip(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	snap := &StakeAccountSnapshot{
		Owner:           owner,
		StakedAmount:    5_000_000_000,
		StartTimestamp:  1_700_000_000,
		LastHarvestTime: 1_700_086_400,
		TotalHarvested:  123_456_789,
	}

	data := EncodeStakeAccount(snap)
	require.Len(t, data, StakeAccountLen)

	parsed, err := ParseStakeAccount(data)
	require.NoError(t, err)
	assert.Equal(t, snap, parsed)
}

func TestParseStakeAccount_TooShort(t *testing.T) {
	_, err := ParseStakeAccount(make([]byte, StakeAccountLen-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestParseStakeAccount_TrailingBytesIgnored(t *testing.T) {
	// Accounts are sometimes allocated larger than the packed struct;
	// only the leading layout bytes are meaningful.
	snap := &StakeAccountSnapshot{
		Owner:        solana.NewWallet().PublicKey(),
		StakedAmount: 42,
	}
	data := append(EncodeStakeAccount(snap), 0xFF, 0xFF, 0xFF)

	parsed, err := ParseStakeAccount(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), parsed.StakedAmount)
}

func TestParseRateState_RoundTrip(t *testing.T) {
	state := &ProgramRateState{
		Admin:                solana.NewWallet().PublicKey(),
		StakeMint:            solana.NewWallet().PublicKey(),
		RewardMint:           solana.NewWallet().PublicKey(),
		StakeRateBasisPoints: 12000,
		HarvestThreshold:     1_000_000_000,
	}

	data := EncodeRateState(state)
	require.Len(t, data, RateStateLen)

	parsed, err := ParseRateState(data)
	require.NoError(t, err)
	assert.Equal(t, state, parsed)
}

func TestParseRateState_TooShort(t *testing.T) {
	_, err := ParseRateState(make([]byte, RateStateLen-8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
