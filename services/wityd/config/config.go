package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Journal drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures runtime configuration for wityd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	EconomyPath   string          `yaml:"economy"`
	Journal       JournalConfig   `yaml:"journal"`
	Auth          AuthConfig      `yaml:"auth"`
	Dev           DevConfig       `yaml:"dev"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	// TrustedProxies lists addresses or CIDR ranges whose X-Forwarded-For
	// and X-Real-IP headers identify the client. Empty means none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// JournalConfig locates the audit journal and nonce store.
type JournalConfig struct {
	Driver string `yaml:"driver"`
	// Path is used by the sqlite driver.
	Path string `yaml:"path"`
	// DSN is used by the postgres driver.
	DSN       string `yaml:"dsn"`
	ExportDir string `yaml:"export_dir"`
}

// AuthConfig bounds signed request freshness.
type AuthConfig struct {
	MaxSkew  Duration `yaml:"max_skew"`
	NonceTTL Duration `yaml:"nonce_ttl"`
}

// DevConfig enables the operator routes used on test deployments.
type DevConfig struct {
	Enabled    bool   `yaml:"enabled"`
	JWTSecret  string `yaml:"jwt_secret"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	FaucetCap  string `yaml:"faucet_cap"`
	ScopeClaim string `yaml:"scope_claim"`
}

// RateLimitConfig throttles each client address.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7080"
	}
	if cfg.EconomyPath == "" {
		cfg.EconomyPath = "./wity.toml"
	}
	cfg.Journal.Driver = strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DriverSQLite
	}
	if cfg.Journal.Driver == DriverSQLite && cfg.Journal.Path == "" {
		cfg.Journal.Path = "./wity-data/journal.sqlite"
	}
	if cfg.Journal.ExportDir == "" {
		cfg.Journal.ExportDir = "./wity-data/exports"
	}
	if cfg.Auth.MaxSkew.Duration == 0 {
		cfg.Auth.MaxSkew.Duration = 2 * time.Minute
	}
	if cfg.Auth.NonceTTL.Duration == 0 {
		cfg.Auth.NonceTTL.Duration = 24 * time.Hour
	}
	if secret := strings.TrimSpace(os.Getenv("WITY_JWT_SECRET")); secret != "" {
		cfg.Dev.JWTSecret = secret
	}
	if cfg.Dev.ScopeClaim == "" {
		cfg.Dev.ScopeClaim = "scope"
	}
	if cfg.Dev.FaucetCap == "" {
		cfg.Dev.FaucetCap = "10000"
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 120
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
}

func validate(cfg Config) error {
	switch cfg.Journal.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Journal.Path) == "" {
			return fmt.Errorf("journal path must be configured for sqlite")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Journal.DSN) == "" {
			return fmt.Errorf("journal dsn must be configured for postgres")
		}
	default:
		return fmt.Errorf("unsupported journal driver %q", cfg.Journal.Driver)
	}
	if cfg.Auth.MaxSkew.Duration < 0 || cfg.Auth.NonceTTL.Duration < cfg.Auth.MaxSkew.Duration {
		return fmt.Errorf("nonce_ttl must cover max_skew")
	}
	if cfg.Dev.Enabled && strings.TrimSpace(cfg.Dev.JWTSecret) == "" {
		return fmt.Errorf("dev routes require a jwt secret")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	for _, entry := range cfg.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", entry)
		}
	}
	return nil
}
