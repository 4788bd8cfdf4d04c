package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// On-ledger account layouts. The external program serializes these manually
// with fixed-width little-endian fields, so the offsets below are a hard
// contract, not a convention.
const (
	// StakeAccountLen is owner(32) + staked(8) + start(8) + lastHarvest(8) + harvested(8).
	StakeAccountLen = 64

	// RateStateLen is admin(32) + stakeMint(32) + rewardMint(32) + rate(8) + threshold(8).
	RateStateLen = 112
)

// ParseStakeAccount decodes a staking account from raw account data.
func ParseStakeAccount(data []byte) (*StakeAccountSnapshot, error) {
	if len(data) < StakeAccountLen {
		return nil, fmt.Errorf("stake account data too short: %d bytes, need %d", len(data), StakeAccountLen)
	}

	snap := &StakeAccountSnapshot{
		Owner:           solana.PublicKeyFromBytes(data[0:32]),
		StakedAmount:    binary.LittleEndian.Uint64(data[32:40]),
		StartTimestamp:  int64(binary.LittleEndian.Uint64(data[40:48])),
		LastHarvestTime: int64(binary.LittleEndian.Uint64(data[48:56])),
		TotalHarvested:  binary.LittleEndian.Uint64(data[56:64]),
	}
	return snap, nil
}

// ParseRateState decodes the staking program's parameter account from raw
// account data.
func ParseRateState(data []byte) (*ProgramRateState, error) {
	if len(data) < RateStateLen {
		return nil, fmt.Errorf("rate state data too short: %d bytes, need %d", len(data), RateStateLen)
	}

	state := &ProgramRateState{
		Admin:                solana.PublicKeyFromBytes(data[0:32]),
		StakeMint:            solana.PublicKeyFromBytes(data[32:64]),
		RewardMint:           solana.PublicKeyFromBytes(data[64:96]),
		StakeRateBasisPoints: binary.LittleEndian.Uint64(data[96:104]),
		HarvestThreshold:     binary.LittleEndian.Uint64(data[104:112]),
	}
	return state, nil
}

// EncodeStakeAccount serializes a snapshot back to the on-ledger layout.
// Used by tests and local simulation fixtures; the client never writes
// account data to the ledger directly.
func EncodeStakeAccount(snap *StakeAccountSnapshot) []byte {
	data := make([]byte, StakeAccountLen)
	copy(data[0:32], snap.Owner[:])
	binary.LittleEndian.PutUint64(data[32:40], snap.StakedAmount)
	binary.LittleEndian.PutUint64(data[40:48], uint64(snap.StartTimestamp))
	binary.LittleEndian.PutUint64(data[48:56], uint64(snap.LastHarvestTime))
	binary.LittleEndian.PutUint64(data[56:64], snap.TotalHarvested)
	return data
}

// EncodeRateState serializes a parameter account back to the on-ledger layout.
func EncodeRateState(state *ProgramRateState) []byte {
	data := make([]byte, RateStateLen)
	copy(data[0:32], state.Admin[:])
	copy(data[32:64], state.StakeMint[:])
	copy(data[64:96], state.RewardMint[:])
	binary.LittleEndian.PutUint64(data[96:104], state.StakeRateBasisPoints)
	binary.LittleEndian.PutUint64(data[104:112], state.HarvestThreshold)
	return data
}
