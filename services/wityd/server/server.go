package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wity/native/migration"
	"wity/native/staking"
	"wity/native/vault"
	"wity/services/wityd/storage"
)

// Economy is the node surface served over HTTP.
type Economy interface {
	WalletBalance(account [20]byte) (*big.Int, error)
	IsMigrated(account [20]byte) (bool, error)
	Positions(account [20]byte) ([]staking.StakePosition, error)
	Position(account [20]byte, index uint64) (staking.StakePosition, error)
	Accrued(account [20]byte, index uint64) (*big.Int, error)
	Valuation(ctx context.Context, account [20]byte) (staking.Valuation, error)
	PlanTable() (staking.PlanTable, error)
	RequiredAmount(planID uint64) (*big.Int, error)
	TokenBalance(symbol string, account [20]byte) (*big.Int, error)
	VaultParams() (vault.Params, error)

	Stake(account [20]byte, planID uint64) (uint64, error)
	MigrateStaked(ctx context.Context, account [20]byte) (migration.Result, error)
	Buy(account [20]byte, amount *big.Int) (*big.Int, error)
	TokenTransfer(symbol string, from, to [20]byte, amount *big.Int) error
	TokenApprove(symbol string, owner, spender [20]byte, amount *big.Int) error
	TokenMint(symbol string, caller, to [20]byte, amount *big.Int) error

	SetAuthorized(caller, target [20]byte, allowed bool) error
	TransferOwnership(caller, newOwner [20]byte) error
	PublishPlans(caller [20]byte, plans []staking.Plan) (uint64, error)
	SetPaused(caller [20]byte, module string, paused bool) error
	SetTreasury(caller, treasury [20]byte) error
	ExcludeFromFee(symbol string, caller, account [20]byte, excluded bool) error
	SetAutomatedMarketMakerPair(symbol string, caller, pair [20]byte, marked bool) error
}

// NonceStore persists consumed request nonces.
type NonceStore interface {
	EnsureNonce(ctx context.Context, signer, nonce string, timestamp int64) (bool, error)
}

// EventStream replays and follows the committed event journal.
type EventStream interface {
	Subscribe(ctx context.Context, after uint64) ([]storage.JournalEntry, <-chan storage.JournalEntry, func(), error)
}

// PriceSetter overrides the manual valuation price.
type PriceSetter interface {
	SetPriceCents(cents uint64) error
}

// LegacyStakes seeds the static legacy stake source.
type LegacyStakes interface {
	SetStake(account [20]byte, principal, reward *big.Int)
}

// DevHooks wires the operator-only routes. Nil members disable the matching
// route.
type DevHooks struct {
	Price       PriceSetter
	Legacy      LegacyStakes
	FaucetAsset string
	FaucetCap   *big.Int
}

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	MaxSkew       time.Duration
	RateLimit     RateLimit
	Proxies       ProxyTrust
	Dev           DevAuthConfig
}

// Server hosts the wityd API.
type Server struct {
	cfg     Config
	economy Economy
	nonces  NonceStore
	stream  EventStream
	dev     DevHooks
	logger  *slog.Logger
	now     func() time.Time

	signer  *SignatureVerifier
	devAuth *DevAuthenticator
	limiter *RateLimiter
	router  http.Handler
}

// New constructs the HTTP server. stream may be nil to disable the event
// stream.
func New(cfg Config, economy Economy, nonces NonceStore, stream EventStream, dev DevHooks, logger *slog.Logger) (*Server, error) {
	if economy == nil {
		return nil, fmt.Errorf("economy required")
	}
	if nonces == nil {
		return nil, fmt.Errorf("nonce store required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":7080"
	}
	srv := &Server{
		cfg:     cfg,
		economy: economy,
		nonces:  nonces,
		stream:  stream,
		dev:     dev,
		logger:  logger,
		now:     time.Now,
	}
	srv.signer = NewSignatureVerifier(nonces, cfg.MaxSkew, func() time.Time { return srv.now() })
	srv.limiter = NewRateLimiter(cfg.RateLimit)
	if cfg.Dev.Enabled {
		srv.devAuth = NewDevAuthenticator(cfg.Dev, logger)
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// SetNowFunc overrides the clock used for signature freshness checks.
func (s *Server) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
	s.limiter.clockNow = now
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.cfg.Proxies.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.limiter.Middleware)

		api.Get("/accounts/{addr}/wallet", s.handleWallet)
		api.Get("/accounts/{addr}/positions", s.handlePositions)
		api.Get("/accounts/{addr}/positions/{index}", s.handlePosition)
		api.Get("/accounts/{addr}/valuation", s.handleValuation)
		api.Get("/plans", s.handlePlans)
		api.Get("/plans/{id}/required", s.handleRequired)
		api.Get("/tokens/{symbol}/balances/{addr}", s.handleTokenBalance)
		api.Get("/vault", s.handleVault)
		api.Get("/events/stream", s.handleEventStream)

		api.Group(func(signed chi.Router) {
			signed.Use(s.signer.Middleware)
			signed.Post("/stake", s.handleStake)
			signed.Post("/migrate", s.handleMigrate)
			signed.Post("/vault/buy", s.handleBuy)
			signed.Post("/tokens/{symbol}/transfer", s.handleTransfer)
			signed.Post("/tokens/{symbol}/approve", s.handleApprove)

			signed.Route("/admin", func(admin chi.Router) {
				admin.Post("/authorized", s.handleSetAuthorized)
				admin.Post("/owner", s.handleTransferOwnership)
				admin.Post("/plans", s.handlePublishPlans)
				admin.Post("/pause", s.handlePause)
				admin.Post("/treasury", s.handleTreasury)
				admin.Post("/fee-exclusions", s.handleFeeExclusion)
				admin.Post("/amm-pairs", s.handleAMMPair)
			})
		})

		if s.devAuth != nil {
			api.Route("/dev", func(dev chi.Router) {
				dev.Use(s.devAuth.Middleware(ScopeDev))
				dev.Post("/faucet", s.handleFaucet)
				dev.Post("/price", s.handleDevPrice)
				dev.Post("/legacy-stake", s.handleDevLegacyStake)
			})
		}
	})
	return r
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(s.router, "wityd"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", slog.String("address", s.cfg.ListenAddress))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
