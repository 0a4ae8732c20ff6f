package migration

import (
	"context"
	"fmt"
	"math/big"

	"wity/core/events"
	"wity/native/common"
)

// Ledger is the part of the staking ledger the gateway needs.
type Ledger interface {
	IsMigrated(account [20]byte) (bool, error)
	MarkMigrated(caller, account [20]byte) error
	DepositToWallet(caller, account [20]byte, amount *big.Int) error
}

// Result summarises a completed migration.
type Result struct {
	Principal *big.Int
	Reward    *big.Int
	Credited  *big.Int
}

// Gateway moves legacy stakes into staking wallets exactly once per account.
// It holds no balances; the ledger owns the migrated flag.
type Gateway struct {
	ledger  Ledger
	source  Source
	address [20]byte
	pauses  common.PauseView
	emitter events.Emitter
}

// NewGateway wires a gateway. address is the identity the gateway presents to
// the ledger and must be an authorized caller.
func NewGateway(ledger Ledger, source Source, address [20]byte) *Gateway {
	return &Gateway{ledger: ledger, source: source, address: address, emitter: events.NoopEmitter{}}
}

// SetEmitter overrides the event emitter used by the gateway.
func (g *Gateway) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		g.emitter = events.NoopEmitter{}
		return
	}
	g.emitter = emitter
}

// SetPauses wires the module pause view.
func (g *Gateway) SetPauses(p common.PauseView) { g.pauses = p }

// Address returns the gateway's caller identity.
func (g *Gateway) Address() [20]byte { return g.address }

// MigrateStaked credits account's legacy principal and reward to its staking
// wallet. The caller must run it inside a unit of work so that a failed
// credit also rolls back the migrated flag.
func (g *Gateway) MigrateStaked(ctx context.Context, account [20]byte) (Result, error) {
	if err := common.Guard(g.pauses, common.ModuleMigration); err != nil {
		return Result{}, err
	}
	if g.source == nil {
		return Result{}, ErrSourceRequired
	}
	migrated, err := g.ledger.IsMigrated(account)
	if err != nil {
		return Result{}, err
	}
	if migrated {
		return Result{}, ErrAlreadyMigrated
	}
	stake, err := g.source.StakeOf(ctx, account)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLegacyRead, err)
	}
	total := stake.Total()
	if total.Sign() == 0 {
		return Result{}, ErrNothingToMigrate
	}
	if err := g.ledger.MarkMigrated(g.address, account); err != nil {
		return Result{}, err
	}
	if err := g.ledger.DepositToWallet(g.address, account, total); err != nil {
		return Result{}, err
	}
	result := Result{
		Principal: amountOrZero(stake.Principal),
		Reward:    amountOrZero(stake.Reward),
		Credited:  total,
	}
	g.emitter.Emit(events.MigrationCompleted{
		Account:   account,
		Principal: result.Principal,
		Reward:    result.Reward,
		Credited:  new(big.Int).Set(total),
	})
	return result, nil
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
