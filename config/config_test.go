package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wity/crypto"
	"wity/native/common"
	"wity/native/staking"
)

func testAddress(b byte) string {
	var raw [20]byte
	raw[19] = b
	return crypto.FromRaw(raw).String()
}

func TestDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "economy.toml")
	if err := Persist(path, Default(testAddress(0x01))); err != nil {
		t.Fatalf("persist: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	genesis, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if len(genesis.Plans) != 5 || genesis.VaultRate != 20 {
		t.Fatalf("unexpected genesis %+v", genesis)
	}
	required, err := staking.RequiredAmount(genesis.Plans[2])
	if err != nil {
		t.Fatalf("required: %v", err)
	}
	if required.Cmp(new(big.Int).Mul(big.NewInt(2000), common.Wad)) != 0 {
		t.Fatalf("expected growth plan to require 2000 WTY, got %s", required)
	}
	bonus, _ := cfg.MigrationBonus()
	if bonus.Cmp(new(big.Int).Mul(big.NewInt(10), common.Wad)) != 0 {
		t.Fatalf("unexpected migration bonus %s", bonus)
	}
}

func TestLoadParsesEconomy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "economy.toml")
	contents := `Owner = "` + testAddress(0x01) + `"
Treasury = "0x0000000000000000000000000000000000000002"
Backend = "bolt"
VaultRate = 25

[Token]
SellTaxBps = 300
AMMPairs = ["0x0000000000000000000000000000000000000009"]

[[Plans]]
Name = "Only"
MinUSD = "12.5"
DurationDays = 7
DailyRewardBps = 10

[[Allocations]]
Symbol = "wty"
Account = "` + testAddress(0x05) + `"
Amount = "1000.5"

[Oracle]
Source = "manual"
PriceCents = 15
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendBolt || cfg.Migration.Source != MigrationStatic {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	genesis, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if genesis.VaultRate != 25 || len(genesis.Plans) != 1 || genesis.Plans[0].Duration != 7*staking.SecondsPerDay {
		t.Fatalf("unexpected genesis %+v", genesis)
	}
	if len(genesis.AMMPairs) != 1 || genesis.Allocations[0].Symbol != "WTY" {
		t.Fatalf("unexpected token layout %+v", genesis)
	}
	for _, meta := range genesis.Tokens {
		if meta.Symbol == "WTY" && meta.Fees.SellBps != 300 {
			t.Fatalf("expected sell tax 300, got %d", meta.Fees.SellBps)
		}
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := map[string]func(*Config){
		"owner":    func(c *Config) { c.Owner = "nope" },
		"backend":  func(c *Config) { c.Backend = "redis" },
		"tax":      func(c *Config) { c.Token.SellTaxBps = 9000 },
		"plan":     func(c *Config) { c.Plans[0].DurationDays = 0 },
		"contract": func(c *Config) { c.Migration.Source = MigrationContract },
		"router":   func(c *Config) { c.Oracle.Source = OracleRouter },
		"amount": func(c *Config) {
			c.Allocations = []AllocationConfig{{Symbol: "WTY", Account: c.Owner, Amount: "-1"}}
		},
	}
	for name, mutate := range cases {
		cfg := Default(testAddress(0x01))
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "economy.toml")
	if err := os.WriteFile(path, []byte(`Owner = "`+testAddress(0x01)+`"`+"\nValidatorKey = \"x\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}
