package staking

import (
	"math/big"
	"testing"

	"wity/native/common"
)

func TestAccruedRewardWholeDays(t *testing.T) {
	amount := new(big.Int).Mul(big.NewInt(400), common.Wad)
	position := StakePosition{
		PlanID:         0,
		Amount:         amount,
		StartTime:      1_000,
		Duration:       30 * SecondsPerDay,
		DailyRewardBps: 50,
		Active:         true,
	}
	cases := []struct {
		name string
		now  uint64
		days int64
	}{
		{"before start", 500, 0},
		{"same second", 1_000, 0},
		{"partial day", 1_000 + SecondsPerDay - 1, 0},
		{"one day", 1_000 + SecondsPerDay, 1},
		{"ten and a half days", 1_000 + 10*SecondsPerDay + SecondsPerDay/2, 10},
		{"capped at duration", 1_000 + 90*SecondsPerDay, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AccruedReward(position, tc.now)
			if err != nil {
				t.Fatalf("accrued: %v", err)
			}
			// 400 WTY * 0.5% = 2 WTY per day
			want := new(big.Int).Mul(big.NewInt(2*tc.days), common.Wad)
			if got.Cmp(want) != 0 {
				t.Fatalf("expected %s got %s", want, got)
			}
		})
	}
}

func TestAccruedRewardDeterministic(t *testing.T) {
	position := StakePosition{
		Amount:         big.NewInt(12345),
		StartTime:      0,
		Duration:       365 * SecondsPerDay,
		DailyRewardBps: 100,
	}
	first, err := AccruedReward(position, 7*SecondsPerDay)
	if err != nil {
		t.Fatalf("accrued: %v", err)
	}
	second, _ := AccruedReward(position, 7*SecondsPerDay)
	if first.Cmp(second) != 0 {
		t.Fatalf("reward must be a pure function of the position and time")
	}
	// 12345 * 100 * 7 / 10000 = 864.15 -> 864
	if first.Cmp(big.NewInt(864)) != 0 {
		t.Fatalf("expected 864, got %s", first)
	}
}
