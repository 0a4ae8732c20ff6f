package staking_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"wity/core/events"
	"wity/core/state"
	"wity/native/auth"
	"wity/native/common"
	"wity/native/staking"
	"wity/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

type fixedFeed struct {
	price *big.Int
	calls int
}

func (f *fixedFeed) CurrentPrice(context.Context) (*big.Int, error) {
	f.calls++
	return new(big.Int).Set(f.price), nil
}

var (
	owner   = addr(0x01)
	vault   = addr(0xAA)
	alice   = addr(0x10)
	bob     = addr(0x11)
	startAt = time.Unix(1_700_000_000, 0)
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func wty(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), common.Wad)
}

type fixture struct {
	ledger   *staking.Ledger
	registry *auth.Registry
	emitter  *capturingEmitter
	pauses   *common.Pauses
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tx := state.NewManager(storage.NewMemDB()).Begin()
	registry := auth.NewRegistry(tx)
	if err := registry.InitOwner(owner); err != nil {
		t.Fatalf("init owner: %v", err)
	}
	if err := registry.SetAuthorized(owner, vault, true); err != nil {
		t.Fatalf("authorize vault: %v", err)
	}
	ledger := staking.NewLedger(tx, registry)
	ledger.SetNowFunc(func() time.Time { return startAt })
	if _, err := ledger.PublishPlans(owner, staking.DefaultPlans()); err != nil {
		t.Fatalf("publish plans: %v", err)
	}
	emitter := &capturingEmitter{}
	ledger.SetEmitter(emitter)
	pauses := common.NewPauses(tx)
	ledger.SetPauses(pauses)
	return &fixture{ledger: ledger, registry: registry, emitter: emitter, pauses: pauses}
}

func TestRequiredAmountUsesFixedPrice(t *testing.T) {
	cases := map[uint64]*big.Int{
		0: wty(400),
		1: wty(1000),
		2: wty(2000),
		3: wty(10_000),
		4: wty(20_000),
	}
	f := newFixture(t)
	for id, want := range cases {
		got, err := f.ledger.RequiredAmount(id)
		if err != nil {
			t.Fatalf("plan %d: %v", id, err)
		}
		if got.Cmp(want) != 0 {
			t.Fatalf("plan %d: expected %s got %s", id, want, got)
		}
	}
	if _, err := f.ledger.RequiredAmount(5); !errors.Is(err, staking.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestDepositRequiresAuthorizedCaller(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(alice, alice, wty(1)); !errors.Is(err, staking.ErrCallerNotAuthorized) {
		t.Fatalf("expected ErrCallerNotAuthorized, got %v", err)
	}
	if err := f.ledger.DepositToWallet(vault, alice, big.NewInt(0)); !errors.Is(err, staking.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := f.ledger.DepositToWallet(vault, [20]byte{}, wty(1)); !errors.Is(err, staking.ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := f.ledger.DepositToWallet(alice, [20]byte{}, wty(1)); !errors.Is(err, staking.ErrCallerNotAuthorized) {
		t.Fatalf("unauthorized caller must be rejected before account checks, got %v", err)
	}
	if err := f.ledger.DepositToWallet(vault, alice, wty(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	balance, _ := f.ledger.WalletBalance(alice)
	if balance.Cmp(wty(5)) != 0 {
		t.Fatalf("expected 5 WTY, got %s", balance)
	}
	if len(f.emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.emitter.events))
	}
	credited, ok := f.emitter.events[0].(events.WalletCredited)
	if !ok || credited.Source != vault || credited.Balance.Cmp(wty(5)) != 0 {
		t.Fatalf("unexpected credit event %+v", f.emitter.events[0])
	}

	if err := f.registry.SetAuthorized(owner, vault, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.ledger.DepositToWallet(vault, alice, wty(1)); !errors.Is(err, staking.ErrCallerNotAuthorized) {
		t.Fatalf("revoked caller must fail, got %v", err)
	}
}

func TestStakeStarterPlan(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(vault, alice, wty(2000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	index, err := f.ledger.Stake(alice, 0)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if index != 0 {
		t.Fatalf("expected index 0, got %d", index)
	}
	balance, _ := f.ledger.WalletBalance(alice)
	if balance.Cmp(wty(1600)) != 0 {
		t.Fatalf("expected 1600 WTY remaining, got %s", balance)
	}
	position, err := f.ledger.Position(alice, 0)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if position.PlanID != 0 || !position.Active || position.Amount.Cmp(wty(400)) != 0 {
		t.Fatalf("unexpected position %+v", position)
	}
	if position.StartTime != uint64(startAt.Unix()) || position.Duration != 30*staking.SecondsPerDay {
		t.Fatalf("unexpected timing %+v", position)
	}
	if position.PlanVersion != 1 || position.DailyRewardBps != 50 {
		t.Fatalf("unexpected snapshot %+v", position)
	}
	if _, err := f.ledger.Position(alice, 1); !errors.Is(err, staking.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	second, err := f.ledger.Stake(alice, 0)
	if err != nil || second != 1 {
		t.Fatalf("expected second position at index 1, got %d err=%v", second, err)
	}
}

func TestStakeInsufficientBalanceIgnoresOracle(t *testing.T) {
	prices := []*big.Int{
		big.NewInt(1),
		wty(100),
		new(big.Int).Mul(wty(1), big.NewInt(1_000_000)),
	}
	for _, price := range prices {
		f := newFixture(t)
		feed := &fixedFeed{price: price}
		if err := f.ledger.DepositToWallet(vault, bob, wty(20)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		if _, err := f.ledger.Valuation(context.Background(), bob, feed); err != nil {
			t.Fatalf("valuation: %v", err)
		}
		emitted := len(f.emitter.events)
		if _, err := f.ledger.Stake(bob, 2); !errors.Is(err, staking.ErrInsufficientWalletBalance) {
			t.Fatalf("price %s: expected ErrInsufficientWalletBalance, got %v", price, err)
		}
		balance, _ := f.ledger.WalletBalance(bob)
		if balance.Cmp(wty(20)) != 0 {
			t.Fatalf("failed stake must not change the balance, got %s", balance)
		}
		if count, _ := f.ledger.PositionCount(bob); count != 0 {
			t.Fatalf("failed stake must not create a position")
		}
		if len(f.emitter.events) != emitted {
			t.Fatalf("failed stake must not emit")
		}
		if feed.calls != 1 {
			t.Fatalf("stake must not consult the price feed, calls=%d", feed.calls)
		}
	}
}

func TestStakeUnknownPlan(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(vault, alice, wty(50_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Stake(alice, 9); !errors.Is(err, staking.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestStakeRespectsPause(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(vault, alice, wty(400)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.pauses.SetPaused(common.ModuleStaking, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.ledger.Stake(alice, 0); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

func TestMarkMigratedOnce(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.MarkMigrated(alice, alice); !errors.Is(err, staking.ErrCallerNotAuthorized) {
		t.Fatalf("expected ErrCallerNotAuthorized, got %v", err)
	}
	if err := f.ledger.MarkMigrated(vault, alice); err != nil {
		t.Fatalf("mark: %v", err)
	}
	migrated, err := f.ledger.IsMigrated(alice)
	if err != nil || !migrated {
		t.Fatalf("expected migrated, got %v err=%v", migrated, err)
	}
	if err := f.ledger.MarkMigrated(vault, alice); !errors.Is(err, staking.ErrAlreadyMigrated) {
		t.Fatalf("expected ErrAlreadyMigrated, got %v", err)
	}
}

func TestPublishPlansKeepsSnapshots(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(vault, alice, wty(10_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Stake(alice, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	updated := staking.DefaultPlans()
	updated[0].DailyRewardBps = 75
	updated[0].MinUSDValue = wty(40)
	if _, err := f.ledger.PublishPlans(alice, updated); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	version, err := f.ledger.PublishPlans(owner, updated)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
	old, _ := f.ledger.Position(alice, 0)
	if old.DailyRewardBps != 50 || old.PlanVersion != 1 || old.Amount.Cmp(wty(400)) != 0 {
		t.Fatalf("existing position changed: %+v", old)
	}
	if _, err := f.ledger.Stake(alice, 0); err != nil {
		t.Fatalf("stake v2: %v", err)
	}
	fresh, _ := f.ledger.Position(alice, 1)
	if fresh.DailyRewardBps != 75 || fresh.PlanVersion != 2 || fresh.Amount.Cmp(wty(800)) != 0 {
		t.Fatalf("unexpected v2 position %+v", fresh)
	}

	broken := staking.DefaultPlans()
	broken[1].ID = 7
	if _, err := f.ledger.PublishPlans(owner, broken); !errors.Is(err, staking.ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestValuation(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.DepositToWallet(vault, alice, wty(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Stake(alice, 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	// $0.10 per WTY
	feed := &fixedFeed{price: big.NewInt(1e17)}
	view, err := f.ledger.Valuation(context.Background(), alice, feed)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if view.Wallet.Cmp(wty(600)) != 0 || view.Staked.Cmp(wty(400)) != 0 {
		t.Fatalf("unexpected balances %+v", view)
	}
	if view.WalletUSD.Cmp(wty(60)) != 0 || view.StakedUSD.Cmp(wty(40)) != 0 {
		t.Fatalf("unexpected usd values %s %s", view.WalletUSD, view.StakedUSD)
	}
	if _, err := f.ledger.Valuation(context.Background(), alice, nil); !errors.Is(err, staking.ErrNilFeed) {
		t.Fatalf("expected ErrNilFeed, got %v", err)
	}
}
