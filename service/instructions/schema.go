// Package instructions serializes typed operation requests into the external
// program's wire format: a one-byte discriminator, little-endian fixed-width
// fields, and an ordered account list. The layouts live in schema tables (one
// per protocol version) so the entire ABI contract is auditable in one place.
// Account ordering and signer/writable flags are dictated by the program;
// changing them produces rejected or mis-executed transactions.
package instructions

import "fmt"

// OpCode is the one-byte instruction discriminator.
type OpCode byte

// Staking program operations (protocol v1).
const (
	OpInitialize       OpCode = 0
	OpStake            OpCode = 1
	OpUnstake          OpCode = 2
	OpHarvest          OpCode = 3
	OpUpdateParameters OpCode = 4
)

// Swap program operations (protocol v4).
const (
	OpSwapInitialize OpCode = 0
	OpSwapToken      OpCode = 1
	OpCloseProgram   OpCode = 2
)

// Version selects which schema table an operation is encoded against.
type Version int

const (
	VersionStaking Version = 1
	VersionSwap    Version = 4
)

type fieldKind int

const (
	kindU8 fieldKind = iota
	kindU64
	kindPubkey
)

type fieldSpec struct {
	name string
	kind fieldKind
}

type accountSpec struct {
	name     string
	signer   bool
	writable bool
}

type opSchema struct {
	name     string
	fields   []fieldSpec
	accounts []accountSpec
}

// Schema maps discriminators to operation layouts for one protocol version.
type Schema map[OpCode]opSchema

var stakingSchema = Schema{
	OpInitialize: {
		name: "initialize",
		fields: []fieldSpec{
			{"stake_rate_basis_points", kindU64},
			{"harvest_threshold", kindU64},
		},
		accounts: []accountSpec{
			{"admin", true, true},
			{"program_state", false, true},
			{"stake_mint", false, false},
			{"reward_mint", false, false},
			{"system_program", false, false},
			{"rent_sysvar", false, false},
		},
	},
	OpStake: {
		name: "stake",
		fields: []fieldSpec{
			{"amount", kindU64},
		},
		accounts: []accountSpec{
			{"owner", true, true},
			{"owner_stake_token", false, true},
			{"program_stake_token", false, true},
			{"staking_account", false, true},
			{"program_state", false, false},
			{"token_program", false, false},
			{"system_program", false, false},
			{"clock_sysvar", false, false},
		},
	},
	OpUnstake: {
		name: "unstake",
		fields: []fieldSpec{
			{"amount", kindU64},
		},
		accounts: []accountSpec{
			{"owner", true, true},
			{"owner_stake_token", false, true},
			{"program_stake_token", false, true},
			{"staking_account", false, true},
			{"program_state", false, false},
			{"token_program", false, false},
			{"program_authority", false, false},
			{"clock_sysvar", false, false},
		},
	},
	OpHarvest: {
		name:   "harvest",
		fields: nil,
		accounts: []accountSpec{
			{"owner", true, true},
			{"owner_reward_token", false, true},
			{"program_reward_token", false, true},
			{"staking_account", false, true},
			{"program_state", false, false},
			{"token_program", false, false},
			{"program_authority", false, false},
			{"clock_sysvar", false, false},
		},
	},
	OpUpdateParameters: {
		name: "update_parameters",
		fields: []fieldSpec{
			{"stake_rate_basis_points", kindU64},
			{"harvest_threshold", kindU64},
		},
		accounts: []accountSpec{
			{"admin", true, false},
			{"program_state", false, true},
		},
	},
}

var swapSchema = Schema{
	OpSwapInitialize: {
		name: "initialize",
		fields: []fieldSpec{
			{"authority_bump", kindU8},
		},
		accounts: []accountSpec{
			{"admin", true, true},
			{"program_state", false, true},
			{"token_a_mint", false, false},
			{"token_b_mint", false, false},
			{"liquidity_pool", false, false},
			{"rent_sysvar", false, false},
		},
	},
	OpSwapToken: {
		name: "swap_token",
		fields: []fieldSpec{
			{"amount_in", kindU64},
			{"minimum_amount_out", kindU64},
		},
		accounts: []accountSpec{
			{"user", true, true},
			{"user_token_in", false, true},
			{"user_token_out", false, true},
			{"user_reward_token", false, true},
			{"program_state", false, true},
			{"liquidity_pool", false, true},
			{"admin_fee_account", false, true},
			{"token_program", false, false},
		},
	},
	OpCloseProgram: {
		name:   "close_program",
		fields: nil,
		accounts: []accountSpec{
			{"admin", true, true},
			{"program_state", false, true},
		},
	},
}

// SchemaFor returns the schema table for a protocol version.
func SchemaFor(v Version) (Schema, error) {
	switch v {
	case VersionStaking:
		return stakingSchema, nil
	case VersionSwap:
		return swapSchema, nil
	default:
		return nil, fmt.Errorf("unknown protocol version %d", v)
	}
}
