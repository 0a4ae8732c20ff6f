package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a development configuration administered by owner.
func Default(owner string) *Config {
	cfg := &Config{
		Owner:      owner,
		Treasury:   owner,
		RewardPool: owner,
		Token: TokenConfig{
			BuyTaxBps:  100,
			SellTaxBps: 200,
		},
		Plans: []PlanConfig{
			{Name: "Starter", MinUSD: "20", DurationDays: 30, DailyRewardBps: 50},
			{Name: "Basic", MinUSD: "50", DurationDays: 60, DailyRewardBps: 60},
			{Name: "Growth", MinUSD: "100", DurationDays: 90, DailyRewardBps: 70},
			{Name: "Premium", MinUSD: "500", DurationDays: 180, DailyRewardBps: 80},
			{Name: "Elite", MinUSD: "1000", DurationDays: 365, DailyRewardBps: 100},
		},
		Migration: MigrationConfig{Source: MigrationStatic, BonusWTY: "10"},
		Oracle:    OracleConfig{Source: OracleManual, PriceCents: 5},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./wity-data"
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendLevelDB
	}
	if strings.TrimSpace(c.PaymentAsset) == "" {
		c.PaymentAsset = "USDT"
	}
	if c.VaultRate == 0 {
		c.VaultRate = 20
	}
	if strings.TrimSpace(c.Treasury) == "" {
		c.Treasury = c.Owner
	}
	if strings.TrimSpace(c.RewardPool) == "" {
		c.RewardPool = c.Owner
	}
	c.Migration.Source = strings.ToLower(strings.TrimSpace(c.Migration.Source))
	if c.Migration.Source == "" {
		c.Migration.Source = MigrationStatic
	}
	c.Oracle.Source = strings.ToLower(strings.TrimSpace(c.Oracle.Source))
	if c.Oracle.Source == "" {
		c.Oracle.Source = OracleManual
	}
	if c.Oracle.Source == OracleManual && c.Oracle.PriceCents == 0 {
		c.Oracle.PriceCents = 5
	}
	if c.Oracle.QuoteDecimals == 0 {
		c.Oracle.QuoteDecimals = 18
	}
}

// Persist writes cfg to path, creating parent directories.
func Persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
