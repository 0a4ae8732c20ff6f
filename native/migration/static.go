package migration

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"wity/crypto"
	"wity/native/common"
)

// StaticSource serves legacy stakes from memory. A flat bonus is reported as
// reward for every account with principal, mirroring the predecessor's test
// deployment.
type StaticSource struct {
	mu     sync.RWMutex
	stakes map[[20]byte]LegacyStake
	bonus  *big.Int
}

// NewStaticSource creates an empty source paying bonus on each non-zero stake.
func NewStaticSource(bonus *big.Int) *StaticSource {
	s := &StaticSource{stakes: make(map[[20]byte]LegacyStake)}
	if bonus != nil && bonus.Sign() > 0 {
		s.bonus = new(big.Int).Set(bonus)
	}
	return s
}

// SetStake records account's legacy principal and explicit reward.
func (s *StaticSource) SetStake(account [20]byte, principal, reward *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stakes[account] = LegacyStake{Principal: amountOrZero(principal), Reward: amountOrZero(reward)}
}

// StakeOf implements Source.
func (s *StaticSource) StakeOf(ctx context.Context, account [20]byte) (LegacyStake, error) {
	if err := ctx.Err(); err != nil {
		return LegacyStake{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stake, ok := s.stakes[account]
	if !ok {
		return LegacyStake{Principal: big.NewInt(0), Reward: big.NewInt(0)}, nil
	}
	out := LegacyStake{Principal: amountOrZero(stake.Principal), Reward: amountOrZero(stake.Reward)}
	if s.bonus != nil && out.Principal.Sign() > 0 {
		out.Reward.Add(out.Reward, s.bonus)
	}
	return out, nil
}

// Len returns the number of accounts known to the source.
func (s *StaticSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stakes)
}

type snapshotFile struct {
	Bonus  string          `yaml:"bonus"`
	Stakes []snapshotEntry `yaml:"stakes"`
}

type snapshotEntry struct {
	Account   string `yaml:"account"`
	Principal string `yaml:"principal"`
	Reward    string `yaml:"reward"`
}

// LoadStaticSource reads a YAML snapshot of legacy stakes. Amounts are decimal
// token strings.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy snapshot: %w", err)
	}
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode legacy snapshot: %w", err)
	}
	var bonus *big.Int
	if file.Bonus != "" {
		bonus, err = common.ParseAmount(file.Bonus)
		if err != nil {
			return nil, fmt.Errorf("legacy snapshot bonus: %w", err)
		}
	}
	source := NewStaticSource(bonus)
	for i, entry := range file.Stakes {
		addr, err := crypto.ParseAddress(entry.Account)
		if err != nil {
			return nil, fmt.Errorf("legacy snapshot entry %d: %w", i, err)
		}
		principal, err := optionalAmount(entry.Principal)
		if err != nil {
			return nil, fmt.Errorf("legacy snapshot entry %d principal: %w", i, err)
		}
		reward, err := optionalAmount(entry.Reward)
		if err != nil {
			return nil, fmt.Errorf("legacy snapshot entry %d reward: %w", i, err)
		}
		source.SetStake(addr.Raw(), principal, reward)
	}
	return source, nil
}

func optionalAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	return common.ParseAmount(value)
}
