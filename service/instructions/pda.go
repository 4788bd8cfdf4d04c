package instructions

import (
	"github.com/gagliardetto/solana-go"
)

// Seed byte strings fixed by the external program.
var (
	authoritySeed = []byte("authority")
	stateSeed     = []byte("state")
	stakingSeed   = []byte("staking")
)

// FindAuthorityAddress derives the program's signing authority PDA.
func FindAuthorityAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{authoritySeed}, programID)
}

// FindStateAddress derives the program's global state PDA.
func FindStateAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{stateSeed}, programID)
}

// FindStakingAccountAddress derives the per-owner staking account PDA.
func FindStakingAccountAddress(programID, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{stakingSeed, owner.Bytes()}, programID)
}
