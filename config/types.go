package config

// Config is the economy and genesis configuration, stored as TOML.
type Config struct {
	DataDir      string `toml:"DataDir"`
	Backend      string `toml:"Backend"`
	Owner        string `toml:"Owner"`
	Treasury     string `toml:"Treasury"`
	RewardPool   string `toml:"RewardPool"`
	PaymentAsset string `toml:"PaymentAsset"`
	VaultRate    uint64 `toml:"VaultRate"`

	Token       TokenConfig        `toml:"Token"`
	Plans       []PlanConfig       `toml:"Plans"`
	Allocations []AllocationConfig `toml:"Allocations"`
	Authorized  []string           `toml:"Authorized"`
	Migration   MigrationConfig    `toml:"Migration"`
	Oracle      OracleConfig       `toml:"Oracle"`
}

// TokenConfig describes the WTY tax policy.
type TokenConfig struct {
	BuyTaxBps      uint64   `toml:"BuyTaxBps"`
	SellTaxBps     uint64   `toml:"SellTaxBps"`
	TransferTaxBps uint64   `toml:"TransferTaxBps"`
	AMMPairs       []string `toml:"AMMPairs"`
	FeeExclusions  []string `toml:"FeeExclusions"`
}

// PlanConfig is one staking plan. MinUSD is a decimal dollar amount.
type PlanConfig struct {
	Name           string `toml:"Name"`
	MinUSD         string `toml:"MinUSD"`
	DurationDays   uint64 `toml:"DurationDays"`
	DailyRewardBps uint64 `toml:"DailyRewardBps"`
}

// AllocationConfig mints an initial balance. Amount is a decimal token amount.
type AllocationConfig struct {
	Symbol  string `toml:"Symbol"`
	Account string `toml:"Account"`
	Amount  string `toml:"Amount"`
}

// MigrationConfig selects the legacy stake source.
type MigrationConfig struct {
	Source       string `toml:"Source"`
	SnapshotFile string `toml:"SnapshotFile"`
	BonusWTY     string `toml:"BonusWTY"`
	RPCURL       string `toml:"RPCURL"`
	Contract     string `toml:"Contract"`
}

// OracleConfig selects the valuation price feed.
type OracleConfig struct {
	Source        string `toml:"Source"`
	PriceCents    uint64 `toml:"PriceCents"`
	RPCURL        string `toml:"RPCURL"`
	Router        string `toml:"Router"`
	Base          string `toml:"Base"`
	Quote         string `toml:"Quote"`
	QuoteDecimals uint8  `toml:"QuoteDecimals"`
	CacheSeconds  uint64 `toml:"CacheSeconds"`
}

// Storage backends.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Legacy sources.
const (
	MigrationStatic   = "static"
	MigrationContract = "contract"
)

// Oracle sources.
const (
	OracleManual = "manual"
	OracleRouter = "router"
)
