package staking

import (
	"math/big"

	"wity/native/common"
)

// ElapsedDays returns the number of whole days the position has accrued at
// now, capped at the plan duration.
func ElapsedDays(position StakePosition, now uint64) uint64 {
	if now <= position.StartTime {
		return 0
	}
	elapsed := (now - position.StartTime) / SecondsPerDay
	maxDays := position.Duration / SecondsPerDay
	if elapsed > maxDays {
		return maxDays
	}
	return elapsed
}

// AccruedReward computes Amount * DailyRewardBps * days / 10000 using only
// whole elapsed days. The result depends on nothing but the snapshot and now.
func AccruedReward(position StakePosition, now uint64) (*big.Int, error) {
	if position.Amount == nil || position.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	elapsed := ElapsedDays(position, now)
	if elapsed == 0 || position.DailyRewardBps == 0 {
		return big.NewInt(0), nil
	}
	rate, err := common.Mul(new(big.Int).SetUint64(position.DailyRewardBps), new(big.Int).SetUint64(elapsed))
	if err != nil {
		return nil, err
	}
	return common.MulDiv(position.Amount, rate, new(big.Int).SetUint64(BasisPoints))
}
