package staking

import (
	"math/big"
	"time"
)

const (
	// SecondsPerDay is the reward accrual granularity.
	SecondsPerDay = uint64(24 * time.Hour / time.Second)
	// BasisPoints is the denominator for DailyRewardBps.
	BasisPoints = uint64(10_000)
)

// FixedAssetPrice is the protocol price of one WTY in USD with 18 decimals
// ($0.05). Plan requirements are always derived from it.
var FixedAssetPrice = big.NewInt(5e16)

// Plan describes a staking tier. MinUSDValue carries 18 decimals and Duration
// is expressed in seconds.
type Plan struct {
	ID             uint64
	Name           string
	MinUSDValue    *big.Int
	Duration       uint64
	DailyRewardBps uint64
}

// Copy returns a deep copy of the plan.
func (p Plan) Copy() Plan {
	out := p
	if p.MinUSDValue != nil {
		out.MinUSDValue = new(big.Int).Set(p.MinUSDValue)
	}
	return out
}

// StakePosition is an immutable snapshot of the plan terms in force when the
// stake was placed.
type StakePosition struct {
	PlanID         uint64
	Amount         *big.Int
	StartTime      uint64
	Duration       uint64
	DailyRewardBps uint64
	Active         bool
	PlanVersion    uint64
	MinUSDValue    *big.Int
}

// Copy returns a deep copy of the position.
func (p StakePosition) Copy() StakePosition {
	out := p
	if p.Amount != nil {
		out.Amount = new(big.Int).Set(p.Amount)
	}
	if p.MinUSDValue != nil {
		out.MinUSDValue = new(big.Int).Set(p.MinUSDValue)
	}
	return out
}

// EndTime returns the unix second at which the position stops accruing.
func (p StakePosition) EndTime() uint64 {
	return p.StartTime + p.Duration
}

// PlanTable is a published, versioned set of plans.
type PlanTable struct {
	Version uint64
	Plans   []Plan
}
