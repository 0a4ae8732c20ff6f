package token_test

import (
	"errors"
	"math/big"
	"testing"

	"wity/core/events"
	"wity/core/state"
	"wity/native/auth"
	"wity/native/common"
	"wity/native/token"
	"wity/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func wty(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), common.Wad)
}

var (
	owner      = addr(0x01)
	rewardPool = addr(0x02)
	pair       = addr(0x03)
	alice      = addr(0x10)
	bob        = addr(0x11)
)

func newEngine(t *testing.T) (*token.Engine, *capturingEmitter) {
	t.Helper()
	tx := state.NewManager(storage.NewMemDB()).Begin()
	registry := auth.NewRegistry(tx)
	if err := registry.InitOwner(owner); err != nil {
		t.Fatalf("init owner: %v", err)
	}
	engine := token.NewEngine(tx, registry)
	if err := engine.Register(token.Metadata{
		Symbol:   token.SymbolWTY,
		Name:     "Wity",
		Decimals: 18,
		Fees:     token.FeePolicy{BuyBps: 100, SellBps: 200, Collector: rewardPool},
	}); err != nil {
		t.Fatalf("register wty: %v", err)
	}
	if err := engine.Register(token.Metadata{Symbol: token.SymbolUSDT, Name: "Tether USD", Decimals: 18, OpenMint: true}); err != nil {
		t.Fatalf("register usdt: %v", err)
	}
	if err := engine.SetAutomatedMarketMakerPair(token.SymbolWTY, owner, pair, true); err != nil {
		t.Fatalf("mark pair: %v", err)
	}
	if err := engine.Mint(token.SymbolWTY, owner, alice, wty(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)
	return engine, emitter
}

func balance(t *testing.T, engine *token.Engine, symbol string, who [20]byte) *big.Int {
	t.Helper()
	bal, err := engine.BalanceOf(symbol, who)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestSellTaxToPair(t *testing.T) {
	engine, emitter := newEngine(t)
	if err := engine.Transfer(token.SymbolWTY, alice, pair, wty(10)); err != nil {
		t.Fatalf("sell: %v", err)
	}
	want, _ := new(big.Int).SetString("9800000000000000000", 10)
	if got := balance(t, engine, token.SymbolWTY, pair); got.Cmp(want) != 0 {
		t.Fatalf("expected pair to receive 9.8 WTY, got %s", got)
	}
	fee, _ := new(big.Int).SetString("200000000000000000", 10)
	if got := balance(t, engine, token.SymbolWTY, rewardPool); got.Cmp(fee) != 0 {
		t.Fatalf("expected reward pool to receive 0.2 WTY, got %s", got)
	}
	if got := balance(t, engine, token.SymbolWTY, alice); got.Cmp(wty(90)) != 0 {
		t.Fatalf("expected sender debited by the gross amount, got %s", got)
	}
	var charged *events.FeeCharged
	for _, e := range emitter.events {
		if fc, ok := e.(events.FeeCharged); ok {
			charged = &fc
		}
	}
	if charged == nil || charged.Kind != token.FeeKindSell || charged.Bps != 200 {
		t.Fatalf("expected sell fee event, got %+v", emitter.events)
	}
}

func TestBuyTaxAndPlainTransfer(t *testing.T) {
	engine, _ := newEngine(t)
	if err := engine.Mint(token.SymbolWTY, owner, pair, wty(100)); err != nil {
		t.Fatalf("mint pair: %v", err)
	}
	if err := engine.Transfer(token.SymbolWTY, pair, bob, wty(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := balance(t, engine, token.SymbolWTY, bob); got.Cmp(wty(99)) != 0 {
		t.Fatalf("expected 99 WTY after 1%% buy tax, got %s", got)
	}
	if err := engine.Transfer(token.SymbolWTY, alice, bob, wty(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := balance(t, engine, token.SymbolWTY, bob); got.Cmp(wty(100)) != 0 {
		t.Fatalf("plain transfers carry no tax by default, got %s", got)
	}
}

func TestExcludedPartiesPayNoTax(t *testing.T) {
	engine, _ := newEngine(t)
	if err := engine.ExcludeFromFee(token.SymbolWTY, alice, alice, true); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.ExcludeFromFee(token.SymbolWTY, owner, alice, true); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if err := engine.Transfer(token.SymbolWTY, alice, pair, wty(10)); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if got := balance(t, engine, token.SymbolWTY, pair); got.Cmp(wty(10)) != 0 {
		t.Fatalf("excluded seller must not be taxed, got %s", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	engine, _ := newEngine(t)
	spender := addr(0xAA)
	if err := engine.Mint(token.SymbolUSDT, bob, bob, wty(100)); err != nil {
		t.Fatalf("open mint: %v", err)
	}
	if err := engine.TransferFrom(token.SymbolUSDT, spender, bob, owner, wty(1)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := engine.Approve(token.SymbolUSDT, bob, spender, wty(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.TransferFrom(token.SymbolUSDT, spender, bob, owner, wty(60)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	allowance, _ := engine.Allowance(token.SymbolUSDT, bob, spender)
	if allowance.Cmp(wty(40)) != 0 {
		t.Fatalf("expected 40 remaining allowance, got %s", allowance)
	}
	if err := engine.TransferFrom(token.SymbolUSDT, spender, bob, owner, wty(41)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := engine.Approve(token.SymbolUSDT, bob, spender, wty(1000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.TransferFrom(token.SymbolUSDT, spender, bob, owner, wty(41)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMintRestrictions(t *testing.T) {
	engine, _ := newEngine(t)
	if err := engine.Mint(token.SymbolWTY, alice, alice, wty(1)); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.Mint("DOGE", owner, alice, wty(1)); !errors.Is(err, token.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	supply, err := engine.TotalSupply(token.SymbolWTY)
	if err != nil || supply.Cmp(wty(100)) != 0 {
		t.Fatalf("unexpected supply %s err=%v", supply, err)
	}
	if err := engine.SetFeePolicy(token.SymbolWTY, owner, token.FeePolicy{SellBps: 9_000, Collector: rewardPool}); !errors.Is(err, token.ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
}
