package core

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"wity/core/events"
	"wity/core/state"
	"wity/crypto"
	"wity/native/auth"
	"wity/native/common"
	"wity/native/migration"
	"wity/native/staking"
	"wity/native/token"
	"wity/native/vault"
	"wity/observability"
	"wity/storage"
)

// Component identities derived at start-up. Genesis authorizes both to credit
// staking wallets.
var (
	VaultAddress   = crypto.DeriveModuleAddress(common.ModuleVault)
	GatewayAddress = crypto.DeriveModuleAddress(common.ModuleMigration)
)

// ErrPriceFeedUnavailable is returned by Valuation when no feed is wired.
var ErrPriceFeedUnavailable = errors.New("core: price feed not configured")

// Node is the central controller, wiring all engines together. Every
// mutating entrypoint runs as one unit of work under stateMu: engines are
// bound to a fresh state transaction and an event buffer, and either the whole
// write set commits and the events publish, or nothing does.
type Node struct {
	db      storage.Database
	manager *state.Manager
	stateMu sync.RWMutex

	source  migration.Source
	feed    staking.PriceFeed
	emitter events.Emitter
	logger  *slog.Logger
	metrics *observability.EconomyMetrics
	nowFn   func() time.Time
}

// NewNode opens the economy state stored in db. source answers legacy stake
// queries and feed (optional) prices valuations.
func NewNode(db storage.Database, source migration.Source, feed staking.PriceFeed) *Node {
	return &Node{
		db:      db,
		manager: state.NewManager(db),
		source:  source,
		feed:    feed,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: observability.Economy(),
		nowFn:   time.Now,
	}
}

// SetEmitter sets the destination for committed events.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetLogger overrides the structured logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

func (n *Node) currentLogger() *slog.Logger {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.logger
}

// SetNowFunc overrides the clock used for position start times and rewards.
func (n *Node) SetNowFunc(now func() time.Time) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if now == nil {
		now = time.Now
	}
	n.nowFn = now
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.db.Close()
}

type engines struct {
	auth    *auth.Registry
	pauses  *common.Pauses
	ledger  *staking.Ledger
	tokens  *token.Engine
	gateway *migration.Gateway
	vault   *vault.Vault
	emitter events.Emitter
}

func (n *Node) bind(st state.Store, emitter events.Emitter) *engines {
	registry := auth.NewRegistry(st)
	registry.SetEmitter(emitter)
	pauses := common.NewPauses(st)

	ledger := staking.NewLedger(st, registry)
	ledger.SetEmitter(emitter)
	ledger.SetPauses(pauses)
	ledger.SetNowFunc(n.nowFn)

	tokens := token.NewEngine(st, registry)
	tokens.SetEmitter(emitter)

	gateway := migration.NewGateway(ledger, n.source, GatewayAddress)
	gateway.SetEmitter(emitter)
	gateway.SetPauses(pauses)

	v := vault.New(st, ledger, tokens, registry, VaultAddress)
	v.SetEmitter(emitter)
	v.SetPauses(pauses)

	return &engines{
		auth:    registry,
		pauses:  pauses,
		ledger:  ledger,
		tokens:  tokens,
		gateway: gateway,
		vault:   v,
		emitter: emitter,
	}
}

// update runs fn as a single unit of work.
func (n *Node) update(operation string, fn func(*engines) error) (err error) {
	start := time.Now()
	defer func() {
		n.metrics.ObserveOperation(operation, err, time.Since(start))
	}()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	tx := n.manager.Begin()
	buffer := &events.Buffer{}
	if err := fn(n.bind(tx, buffer)); err != nil {
		tx.Discard()
		n.logger.Debug("operation rejected", slog.String("operation", operation), slog.Any("error", err))
		return err
	}
	if err := tx.Commit(); err != nil {
		n.logger.Error("commit failed", slog.String("operation", operation), slog.Any("error", err))
		return err
	}
	buffer.Flush(n.emitter)
	return nil
}

// view runs fn against committed state.
func (n *Node) view(fn func(*engines) error) error {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	tx := n.manager.Begin()
	defer tx.Discard()
	return fn(n.bind(tx, events.NoopEmitter{}))
}

// --- administration ---

func (n *Node) Owner() ([20]byte, error) {
	var owner [20]byte
	err := n.view(func(e *engines) error {
		var err error
		owner, err = e.auth.Owner()
		return err
	})
	return owner, err
}

func (n *Node) SetAuthorized(caller, target [20]byte, allowed bool) error {
	return n.update("set_authorized", func(e *engines) error {
		return e.auth.SetAuthorized(caller, target, allowed)
	})
}

func (n *Node) IsAuthorized(target [20]byte) bool {
	var allowed bool
	_ = n.view(func(e *engines) error {
		allowed = e.auth.IsAuthorized(target)
		return nil
	})
	return allowed
}

func (n *Node) AuthorizedCallers() ([][20]byte, error) {
	var callers [][20]byte
	err := n.view(func(e *engines) error {
		var err error
		callers, err = e.auth.AuthorizedCallers()
		return err
	})
	return callers, err
}

func (n *Node) TransferOwnership(caller, newOwner [20]byte) error {
	return n.update("transfer_ownership", func(e *engines) error {
		return e.auth.TransferOwnership(caller, newOwner)
	})
}

// SetPaused pauses or resumes a module. Owner only.
func (n *Node) SetPaused(caller [20]byte, module string, paused bool) error {
	return n.update("set_paused", func(e *engines) error {
		if err := e.auth.RequireOwner(caller); err != nil {
			return err
		}
		if err := e.pauses.SetPaused(module, paused); err != nil {
			return err
		}
		e.emitter.Emit(events.ModulePauseUpdated{Module: module, Owner: caller, Paused: paused})
		return nil
	})
}

func (n *Node) IsPaused(module string) bool {
	var paused bool
	_ = n.view(func(e *engines) error {
		paused = e.pauses.IsPaused(module)
		return nil
	})
	return paused
}

func (n *Node) PublishPlans(caller [20]byte, plans []staking.Plan) (uint64, error) {
	var version uint64
	err := n.update("publish_plans", func(e *engines) error {
		var err error
		version, err = e.ledger.PublishPlans(caller, plans)
		return err
	})
	return version, err
}

func (n *Node) SetTreasury(caller, treasury [20]byte) error {
	return n.update("set_treasury", func(e *engines) error {
		return e.vault.SetTreasury(caller, treasury)
	})
}

// --- credit and debit paths ---

// MigrateStaked credits account's legacy stake exactly once. The legacy read
// happens inside the unit of work so concurrent calls for one account
// serialize on the migrated flag.
func (n *Node) MigrateStaked(ctx context.Context, account [20]byte) (migration.Result, error) {
	var result migration.Result
	err := n.update("migrate", func(e *engines) error {
		var err error
		result, err = e.gateway.MigrateStaked(ctx, account)
		return err
	})
	if err == nil {
		n.metrics.RecordCredit(common.ModuleMigration, result.Credited)
		n.currentLogger().Info("legacy stake migrated",
			slog.String("account", crypto.FromRaw(account).String()),
			slog.String("credited", common.FormatAmount(result.Credited)))
	}
	return result, err
}

// Buy pulls amount of the payment asset and credits staking wallet units.
func (n *Node) Buy(account [20]byte, amount *big.Int) (*big.Int, error) {
	var credited *big.Int
	err := n.update("vault_buy", func(e *engines) error {
		var err error
		credited, err = e.vault.Buy(account, amount)
		return err
	})
	if err == nil {
		n.metrics.RecordCredit(common.ModuleVault, credited)
	}
	return credited, err
}

// Stake opens a position in planID for account.
func (n *Node) Stake(account [20]byte, planID uint64) (uint64, error) {
	var index uint64
	err := n.update("stake", func(e *engines) error {
		var err error
		index, err = e.ledger.Stake(account, planID)
		return err
	})
	if err == nil {
		n.metrics.RecordStake(planID)
	}
	return index, err
}

// --- staking reads ---

func (n *Node) WalletBalance(account [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.view(func(e *engines) error {
		var err error
		balance, err = e.ledger.WalletBalance(account)
		return err
	})
	return balance, err
}

func (n *Node) IsMigrated(account [20]byte) (bool, error) {
	var migrated bool
	err := n.view(func(e *engines) error {
		var err error
		migrated, err = e.ledger.IsMigrated(account)
		return err
	})
	return migrated, err
}

func (n *Node) Position(account [20]byte, index uint64) (staking.StakePosition, error) {
	var position staking.StakePosition
	err := n.view(func(e *engines) error {
		var err error
		position, err = e.ledger.Position(account, index)
		return err
	})
	return position, err
}

func (n *Node) Positions(account [20]byte) ([]staking.StakePosition, error) {
	var positions []staking.StakePosition
	err := n.view(func(e *engines) error {
		var err error
		positions, err = e.ledger.Positions(account)
		return err
	})
	return positions, err
}

func (n *Node) PositionCount(account [20]byte) (uint64, error) {
	var count uint64
	err := n.view(func(e *engines) error {
		var err error
		count, err = e.ledger.PositionCount(account)
		return err
	})
	return count, err
}

// Accrued returns the reward accrued by a position at the node's clock.
func (n *Node) Accrued(account [20]byte, index uint64) (*big.Int, error) {
	var reward *big.Int
	err := n.view(func(e *engines) error {
		var err error
		reward, err = e.ledger.Accrued(account, index)
		return err
	})
	return reward, err
}

func (n *Node) PlanTable() (staking.PlanTable, error) {
	var table staking.PlanTable
	err := n.view(func(e *engines) error {
		var err error
		table, err = e.ledger.PlanTable()
		return err
	})
	return table, err
}

func (n *Node) RequiredAmount(planID uint64) (*big.Int, error) {
	var required *big.Int
	err := n.view(func(e *engines) error {
		var err error
		required, err = e.ledger.RequiredAmount(planID)
		return err
	})
	return required, err
}

// Valuation prices an account at the market feed. The committed snapshot is
// read first and the feed is queried without holding the state lock.
func (n *Node) Valuation(ctx context.Context, account [20]byte) (staking.Valuation, error) {
	if n.feed == nil {
		return staking.Valuation{}, ErrPriceFeedUnavailable
	}
	var wallet, staked *big.Int
	err := n.view(func(e *engines) error {
		var err error
		if wallet, err = e.ledger.WalletBalance(account); err != nil {
			return err
		}
		staked, err = e.ledger.StakedBalance(account)
		return err
	})
	if err != nil {
		return staking.Valuation{}, err
	}
	return staking.Appraise(ctx, wallet, staked, n.feed)
}

// --- tokens ---

func (n *Node) TokenTransfer(symbol string, from, to [20]byte, amount *big.Int) error {
	return n.update("token_transfer", func(e *engines) error {
		return e.tokens.Transfer(symbol, from, to, amount)
	})
}

func (n *Node) TokenApprove(symbol string, owner, spender [20]byte, amount *big.Int) error {
	return n.update("token_approve", func(e *engines) error {
		return e.tokens.Approve(symbol, owner, spender, amount)
	})
}

func (n *Node) TokenMint(symbol string, caller, to [20]byte, amount *big.Int) error {
	return n.update("token_mint", func(e *engines) error {
		return e.tokens.Mint(symbol, caller, to, amount)
	})
}

func (n *Node) ExcludeFromFee(symbol string, caller, account [20]byte, excluded bool) error {
	return n.update("fee_exclusion", func(e *engines) error {
		return e.tokens.ExcludeFromFee(symbol, caller, account, excluded)
	})
}

func (n *Node) SetAutomatedMarketMakerPair(symbol string, caller, pair [20]byte, marked bool) error {
	return n.update("amm_pair", func(e *engines) error {
		return e.tokens.SetAutomatedMarketMakerPair(symbol, caller, pair, marked)
	})
}

func (n *Node) TokenBalance(symbol string, account [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.view(func(e *engines) error {
		var err error
		balance, err = e.tokens.BalanceOf(symbol, account)
		return err
	})
	return balance, err
}

func (n *Node) TokenAllowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	var allowance *big.Int
	err := n.view(func(e *engines) error {
		var err error
		allowance, err = e.tokens.Allowance(symbol, owner, spender)
		return err
	})
	return allowance, err
}

func (n *Node) TokenMetadata(symbol string) (token.Metadata, error) {
	var meta token.Metadata
	err := n.view(func(e *engines) error {
		var err error
		meta, err = e.tokens.Metadata(symbol)
		return err
	})
	return meta, err
}

func (n *Node) VaultParams() (vault.Params, error) {
	var params vault.Params
	err := n.view(func(e *engines) error {
		var err error
		params, err = e.vault.Params()
		return err
	})
	return params, err
}
