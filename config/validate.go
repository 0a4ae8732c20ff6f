package config

import (
	"fmt"
	"math/big"
	"strings"

	"wity/core"
	"wity/crypto"
	"wity/native/common"
	"wity/native/staking"
	"wity/native/token"
)

// Validate checks the configuration without touching state.
func (c *Config) Validate() error {
	if _, err := c.Genesis(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("backend: unsupported %q", c.Backend)
	}
	switch c.Migration.Source {
	case MigrationStatic:
		if c.Migration.BonusWTY != "" {
			if _, err := common.ParseAmount(c.Migration.BonusWTY); err != nil {
				return fmt.Errorf("migration: bonus: %w", err)
			}
		}
	case MigrationContract:
		if strings.TrimSpace(c.Migration.RPCURL) == "" {
			return fmt.Errorf("migration: RPCURL required for contract source")
		}
		if _, err := crypto.ParseAddress(c.Migration.Contract); err != nil {
			return fmt.Errorf("migration: contract: %w", err)
		}
	default:
		return fmt.Errorf("migration: unsupported source %q", c.Migration.Source)
	}
	switch c.Oracle.Source {
	case OracleManual:
	case OracleRouter:
		if strings.TrimSpace(c.Oracle.RPCURL) == "" {
			return fmt.Errorf("oracle: RPCURL required for router source")
		}
		for name, value := range map[string]string{"router": c.Oracle.Router, "base": c.Oracle.Base, "quote": c.Oracle.Quote} {
			if _, err := crypto.ParseAddress(value); err != nil {
				return fmt.Errorf("oracle: %s: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("oracle: unsupported source %q", c.Oracle.Source)
	}
	return nil
}

func parseAddr(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr.Raw(), nil
}

func parseAddrList(field string, values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for i, value := range values {
		addr, err := parseAddr(fmt.Sprintf("%s[%d]", field, i), value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// Genesis converts the configuration into the initial economy layout.
func (c *Config) Genesis() (core.Genesis, error) {
	owner, err := parseAddr("Owner", c.Owner)
	if err != nil {
		return core.Genesis{}, err
	}
	treasury, err := parseAddr("Treasury", c.Treasury)
	if err != nil {
		return core.Genesis{}, err
	}
	rewardPool, err := parseAddr("RewardPool", c.RewardPool)
	if err != nil {
		return core.Genesis{}, err
	}
	g := core.DefaultGenesis(owner, treasury, rewardPool)
	g.PaymentAsset = token.NormalizeSymbol(c.PaymentAsset)
	g.VaultRate = c.VaultRate

	for i := range g.Tokens {
		if g.Tokens[i].Symbol != token.SymbolWTY {
			continue
		}
		g.Tokens[i].Fees = token.FeePolicy{
			BuyBps:      c.Token.BuyTaxBps,
			SellBps:     c.Token.SellTaxBps,
			TransferBps: c.Token.TransferTaxBps,
			Collector:   rewardPool,
		}
		if err := g.Tokens[i].Fees.Validate(); err != nil {
			return core.Genesis{}, fmt.Errorf("token: %w", err)
		}
	}
	if g.AMMPairs, err = parseAddrList("Token.AMMPairs", c.Token.AMMPairs); err != nil {
		return core.Genesis{}, err
	}
	if g.FeeExclusions, err = parseAddrList("Token.FeeExclusions", c.Token.FeeExclusions); err != nil {
		return core.Genesis{}, err
	}
	if g.Authorized, err = parseAddrList("Authorized", c.Authorized); err != nil {
		return core.Genesis{}, err
	}

	if len(c.Plans) > 0 {
		plans := make([]staking.Plan, 0, len(c.Plans))
		for i, pc := range c.Plans {
			minUSD, err := common.ParseAmount(pc.MinUSD)
			if err != nil {
				return core.Genesis{}, fmt.Errorf("Plans[%d].MinUSD: %w", i, err)
			}
			plans = append(plans, staking.Plan{
				ID:             uint64(i),
				Name:           strings.TrimSpace(pc.Name),
				MinUSDValue:    minUSD,
				Duration:       pc.DurationDays * staking.SecondsPerDay,
				DailyRewardBps: pc.DailyRewardBps,
			})
		}
		g.Plans = plans
	}
	if err := staking.ValidatePlans(g.Plans); err != nil {
		return core.Genesis{}, err
	}

	for i, ac := range c.Allocations {
		account, err := parseAddr(fmt.Sprintf("Allocations[%d].Account", i), ac.Account)
		if err != nil {
			return core.Genesis{}, err
		}
		amount, err := common.ParseAmount(ac.Amount)
		if err != nil {
			return core.Genesis{}, fmt.Errorf("Allocations[%d].Amount: %w", i, err)
		}
		if amount.Sign() == 0 {
			return core.Genesis{}, fmt.Errorf("Allocations[%d].Amount must be positive", i)
		}
		g.Allocations = append(g.Allocations, core.Allocation{
			Symbol:  token.NormalizeSymbol(ac.Symbol),
			Account: account,
			Amount:  amount,
		})
	}
	if c.VaultRate == 0 {
		return core.Genesis{}, fmt.Errorf("VaultRate must be positive")
	}
	return g, nil
}

// MigrationBonus returns the flat bonus paid by the static legacy source.
func (c *Config) MigrationBonus() (*big.Int, error) {
	if strings.TrimSpace(c.Migration.BonusWTY) == "" {
		return big.NewInt(0), nil
	}
	return common.ParseAmount(c.Migration.BonusWTY)
}
