package staking

import (
	"fmt"
	"math/big"
	"strings"

	"wity/native/common"
)

func usd(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), common.Wad)
}

func days(n uint64) uint64 {
	return n * SecondsPerDay
}

// DefaultPlans returns the launch plan table.
func DefaultPlans() []Plan {
	return []Plan{
		{ID: 0, Name: "Starter", MinUSDValue: usd(20), Duration: days(30), DailyRewardBps: 50},
		{ID: 1, Name: "Basic", MinUSDValue: usd(50), Duration: days(60), DailyRewardBps: 60},
		{ID: 2, Name: "Growth", MinUSDValue: usd(100), Duration: days(90), DailyRewardBps: 70},
		{ID: 3, Name: "Premium", MinUSDValue: usd(500), Duration: days(180), DailyRewardBps: 80},
		{ID: 4, Name: "Elite", MinUSDValue: usd(1000), Duration: days(365), DailyRewardBps: 100},
	}
}

// RequiredAmount converts the plan's USD threshold to WTY at the fixed asset
// price. It never consults a market price.
func RequiredAmount(plan Plan) (*big.Int, error) {
	if plan.MinUSDValue == nil || plan.MinUSDValue.Sign() <= 0 {
		return nil, fmt.Errorf("%w: plan %d has no minimum value", ErrInvalidPlan, plan.ID)
	}
	return common.MulDiv(plan.MinUSDValue, common.Wad, FixedAssetPrice)
}

// ValidatePlans checks a candidate table. Plan identifiers must match their
// position in the slice.
func ValidatePlans(plans []Plan) error {
	if len(plans) == 0 {
		return fmt.Errorf("%w: table is empty", ErrInvalidPlan)
	}
	for i, plan := range plans {
		if plan.ID != uint64(i) {
			return fmt.Errorf("%w: plan at position %d has id %d", ErrInvalidPlan, i, plan.ID)
		}
		if strings.TrimSpace(plan.Name) == "" {
			return fmt.Errorf("%w: plan %d name required", ErrInvalidPlan, plan.ID)
		}
		if plan.MinUSDValue == nil || plan.MinUSDValue.Sign() <= 0 {
			return fmt.Errorf("%w: plan %d minimum value must be positive", ErrInvalidPlan, plan.ID)
		}
		if plan.Duration == 0 {
			return fmt.Errorf("%w: plan %d duration must be positive", ErrInvalidPlan, plan.ID)
		}
		if plan.DailyRewardBps > BasisPoints {
			return fmt.Errorf("%w: plan %d daily reward exceeds 100%%", ErrInvalidPlan, plan.ID)
		}
		if _, err := RequiredAmount(plan); err != nil {
			return err
		}
	}
	return nil
}
