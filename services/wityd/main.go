package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	economy "wity/config"
	"wity/core"
	"wity/core/events"
	"wity/native/common"
	"wity/observability"
	"wity/observability/logging"
	telemetry "wity/observability/otel"
	"wity/services/wityd/config"
	"wity/services/wityd/server"
	"wity/services/wityd/storage"
)

const noncePruneInterval = time.Hour

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/wityd/config.yaml", "path to wityd configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("WITY_ENV"))
	logger := logging.Setup("wityd", env)
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.ConfigFromEnv("wityd", env))
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("wityd: load config: %v", err)
	}
	econ, err := economy.Load(cfg.EconomyPath)
	if err != nil {
		log.Fatalf("wityd: load economy: %v", err)
	}
	genesis, err := econ.Genesis()
	if err != nil {
		log.Fatalf("wityd: genesis: %v", err)
	}

	rt, err := econ.OpenRuntime()
	if err != nil {
		log.Fatalf("wityd: open runtime: %v", err)
	}
	node := core.NewNode(rt.DB, rt.Source, rt.Feed)
	defer node.Close()
	node.SetLogger(logger)
	if !node.Initialised() {
		if err := node.InitGenesis(genesis); err != nil {
			log.Fatalf("wityd: init genesis: %v", err)
		}
		logger.Info("genesis applied", "backend", econ.Backend, "plans", len(genesis.Plans))
	}

	store, err := storage.OpenConfigured(cfg.Journal.Driver, cfg.Journal.Path, cfg.Journal.DSN)
	if err != nil {
		log.Fatalf("wityd: open journal: %v", err)
	}
	defer store.Close()
	logger.Info("journal opened", "driver", cfg.Journal.Driver, "path", cfg.Journal.Path, "dsn", cfg.Journal.DSN)
	journal := storage.NewJournal(store, logger)
	node.SetEmitter(events.NewFanout(journal, observability.Events()))

	dev := server.DevHooks{FaucetAsset: genesis.PaymentAsset}
	if rt.Manual != nil {
		dev.Price = rt.Manual
	}
	if rt.Static != nil {
		dev.Legacy = rt.Static
	}
	if cfg.Dev.Enabled {
		dev.FaucetCap, err = common.ParseAmount(cfg.Dev.FaucetCap)
		if err != nil {
			log.Fatalf("wityd: dev faucet cap: %v", err)
		}
	}

	proxies, err := server.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("wityd: %v", err)
	}

	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		MaxSkew:       cfg.Auth.MaxSkew.Duration,
		RateLimit: server.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Proxies: proxies,
		Dev: server.DevAuthConfig{
			Enabled:    cfg.Dev.Enabled,
			HMACSecret: cfg.Dev.JWTSecret,
			Issuer:     cfg.Dev.Issuer,
			Audience:   cfg.Dev.Audience,
			ScopeClaim: cfg.Dev.ScopeClaim,
			ClockSkew:  cfg.Auth.MaxSkew.Duration,
		},
	}, node, store, journal, dev, logger)
	if err != nil {
		log.Fatalf("wityd: create server: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go pruneNonces(ctx, store, cfg.Auth.NonceTTL.Duration, logger)

	logger.Info("wityd listening", "addr", cfg.ListenAddress, "dev_routes", cfg.Dev.Enabled)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("wityd: server error: %v", err)
	}
}

// pruneNonces drops replay records older than ttl. Signatures that old fail
// the skew check before the nonce store is consulted.
func pruneNonces(ctx context.Context, store *storage.Storage, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(noncePruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.PruneNonces(ctx, now.Add(-ttl))
			if err != nil {
				logger.Warn("prune nonces", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("pruned nonces", "removed", removed)
			}
		}
	}
}
