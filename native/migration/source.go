package migration

import (
	"context"
	"math/big"
)

// LegacyStake is the predecessor system's view of an account. The reward is
// taken as reported.
type LegacyStake struct {
	Principal *big.Int
	Reward    *big.Int
}

// Total returns principal plus reward, treating nil as zero.
func (s LegacyStake) Total() *big.Int {
	total := new(big.Int)
	if s.Principal != nil {
		total.Add(total, s.Principal)
	}
	if s.Reward != nil {
		total.Add(total, s.Reward)
	}
	return total
}

// Source reads legacy stakes.
type Source interface {
	StakeOf(ctx context.Context, account [20]byte) (LegacyStake, error)
}
