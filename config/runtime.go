package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"wity/crypto"
	"wity/native/migration"
	"wity/native/oracle"
	"wity/native/staking"
	"wity/storage"
)

// Runtime holds the backends selected by the configuration.
type Runtime struct {
	DB     storage.Database
	Source migration.Source
	Feed   staking.PriceFeed

	// Manual and Static are set only when the operator-controlled
	// implementations are selected, so development hooks can drive them.
	Manual *oracle.ManualFeed
	Static *migration.StaticSource
}

// Close releases the state database.
func (r *Runtime) Close() {
	if r != nil && r.DB != nil {
		r.DB.Close()
	}
}

// OpenRuntime opens the state database and dials the configured legacy source
// and price feed.
func (c *Config) OpenRuntime() (*Runtime, error) {
	db, err := c.openDatabase()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{DB: db}
	if err := c.bindSource(rt); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.bindFeed(rt); err != nil {
		db.Close()
		return nil, err
	}
	return rt, nil
}

func (c *Config) openDatabase() (storage.Database, error) {
	switch c.Backend {
	case BackendMemory:
		return storage.NewMemDB(), nil
	case BackendLevelDB:
		db, err := storage.NewLevelDB(filepath.Join(c.DataDir, "state"))
		if err != nil {
			return nil, fmt.Errorf("open leveldb: %w", err)
		}
		return db, nil
	case BackendBolt:
		db, err := storage.NewBoltDB(filepath.Join(c.DataDir, "state.bolt"))
		if err != nil {
			return nil, fmt.Errorf("open bolt: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("backend: unsupported %q", c.Backend)
	}
}

func (c *Config) bindSource(rt *Runtime) error {
	switch c.Migration.Source {
	case MigrationStatic:
		if path := strings.TrimSpace(c.Migration.SnapshotFile); path != "" {
			source, err := migration.LoadStaticSource(path)
			if err != nil {
				return err
			}
			rt.Source, rt.Static = source, source
			return nil
		}
		bonus, err := c.MigrationBonus()
		if err != nil {
			return fmt.Errorf("migration: bonus: %w", err)
		}
		source := migration.NewStaticSource(bonus)
		rt.Source, rt.Static = source, source
		return nil
	case MigrationContract:
		contract, err := evmAddress("migration: contract", c.Migration.Contract)
		if err != nil {
			return err
		}
		client, err := migration.DialLegacyClient(c.Migration.RPCURL)
		if err != nil {
			return fmt.Errorf("migration: dial: %w", err)
		}
		source, err := migration.NewContractSource(client, contract)
		if err != nil {
			client.Close()
			return err
		}
		rt.Source = source
		return nil
	default:
		return fmt.Errorf("migration: unsupported source %q", c.Migration.Source)
	}
}

func (c *Config) bindFeed(rt *Runtime) error {
	switch c.Oracle.Source {
	case OracleManual:
		feed := oracle.NewManualFeed(c.Oracle.PriceCents)
		rt.Feed, rt.Manual = feed, feed
		return nil
	case OracleRouter:
		router, err := evmAddress("oracle: router", c.Oracle.Router)
		if err != nil {
			return err
		}
		base, err := evmAddress("oracle: base", c.Oracle.Base)
		if err != nil {
			return err
		}
		quote, err := evmAddress("oracle: quote", c.Oracle.Quote)
		if err != nil {
			return err
		}
		client, err := oracle.DialRouterClient(c.Oracle.RPCURL)
		if err != nil {
			return fmt.Errorf("oracle: dial: %w", err)
		}
		feed, err := oracle.NewRouterFeed(client, router, base, quote, c.Oracle.QuoteDecimals)
		if err != nil {
			client.Close()
			return err
		}
		if c.Oracle.CacheSeconds > 0 {
			rt.Feed = oracle.NewCachedFeed(feed, time.Duration(c.Oracle.CacheSeconds)*time.Second)
		} else {
			rt.Feed = feed
		}
		return nil
	default:
		return fmt.Errorf("oracle: unsupported source %q", c.Oracle.Source)
	}
}

func evmAddress(field, value string) (ethcommon.Address, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	raw := addr.Raw()
	return ethcommon.BytesToAddress(raw[:]), nil
}
