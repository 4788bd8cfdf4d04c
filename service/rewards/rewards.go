// Package rewards implements the deterministic reward-accrual math for the
// staking program. All principal-affecting computation here is linear
// (simple interest) to match the program's own accounting; the compounding
// APY projection is display-only and must never feed back into amounts.
package rewards

import (
	"math"
	"time"

	solanasvc "github.com/yotlabs/hubclient/service/solana"
)

// Reference calibration pair published by the program: a stake rate of
// 12000 basis points corresponds to 0.00000125 percent per second. Every
// other rate is a linear proportion of this pair.
const (
	RefBasisPoints   = 12000
	RefRatePerSecond = 0.00000125
)

// DefaultDecimals is the token decimal count used by both the stake and
// reward mints. Raw amounts on the ledger are scaled by 10^DefaultDecimals.
const DefaultDecimals = 9

const secondsPerYear = 365 * 24 * 60 * 60

// RatePerSecond converts a basis-point stake rate into a percent-per-second
// yield using the linear calibration above. This is the only rate formula;
// there are no special-cased inputs.
func RatePerSecond(basisPoints uint64) float64 {
	return float64(basisPoints) * (RefRatePerSecond / RefBasisPoints)
}

// PendingReward computes the linear (non-compounding) reward accrued since
// the last harvest, in raw reward-token units. Negative elapsed time (clock
// skew between client and ledger) is clamped to zero.
func PendingReward(snap *solanasvc.StakeAccountSnapshot, basisPoints uint64, now time.Time) uint64 {
	elapsed := now.Unix() - snap.LastHarvestTime
	if elapsed <= 0 || snap.StakedAmount == 0 {
		return 0
	}

	rate := RatePerSecond(basisPoints)
	reward := float64(snap.StakedAmount) * (rate / 100) * float64(elapsed)
	return uint64(reward)
}

// CanHarvest reports whether the accrued reward has reached the program's
// harvest threshold. The program enforces the same check on-ledger; calling
// harvest below threshold wastes a transaction fee.
func CanHarvest(snap *solanasvc.StakeAccountSnapshot, basisPoints, threshold uint64, now time.Time) bool {
	return PendingReward(snap, basisPoints, now) >= threshold
}

// DisplayAPY returns the compounded annual percentage yield implied by the
// per-second rate. Display-only: the program pays linear interest, so this
// figure must never be used to compute amounts.
func DisplayAPY(basisPoints uint64) float64 {
	perSecond := RatePerSecond(basisPoints) / 100
	return (math.Pow(1+perSecond, secondsPerYear) - 1) * 100
}

// ToUI converts a raw on-ledger amount to a human-readable decimal amount.
// Pure presentation helper; never use the result in principal math.
func ToUI(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// FromUI converts a human-readable decimal amount to a raw on-ledger amount.
func FromUI(ui float64, decimals uint8) uint64 {
	return uint64(math.Round(ui * math.Pow10(int(decimals))))
}
