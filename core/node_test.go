package core

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"wity/core/events"
	"wity/native/auth"
	"wity/native/common"
	"wity/native/migration"
	"wity/native/oracle"
	"wity/native/staking"
	"wity/native/token"
	"wity/native/vault"
	"wity/storage"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func wty(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), common.Wad)
}

var (
	testOwner      = testAddr(0x01)
	testTreasury   = testAddr(0x02)
	testRewardPool = testAddr(0x03)
	testUser       = testAddr(0x10)
	testAttacker   = testAddr(0x66)
)

type testNode struct {
	*Node
	source  *migration.StaticSource
	feed    *oracle.ManualFeed
	emitter *recordingEmitter
}

func newTestNode(t *testing.T, db storage.Database) *testNode {
	t.Helper()
	source := migration.NewStaticSource(wty(10))
	feed := oracle.NewManualFeed(15)
	node := NewNode(db, source, feed)
	node.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	if err := node.InitGenesis(DefaultGenesis(testOwner, testTreasury, testRewardPool)); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	emitter := &recordingEmitter{}
	node.SetEmitter(emitter)
	return &testNode{Node: node, source: source, feed: feed, emitter: emitter}
}

func TestGenesisAppliesOnce(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	if !node.Initialised() {
		t.Fatalf("expected initialised node")
	}
	if err := node.InitGenesis(DefaultGenesis(testOwner, testTreasury, testRewardPool)); !errors.Is(err, ErrGenesisApplied) {
		t.Fatalf("expected ErrGenesisApplied, got %v", err)
	}
	if !node.IsAuthorized(VaultAddress) || !node.IsAuthorized(GatewayAddress) {
		t.Fatalf("vault and gateway must be authorized at genesis")
	}
	table, err := node.PlanTable()
	if err != nil || table.Version != 1 || len(table.Plans) != 5 {
		t.Fatalf("unexpected plan table %+v err=%v", table, err)
	}
	params, err := node.VaultParams()
	if err != nil || params.Rate != vault.DefaultRate || params.Treasury != testTreasury {
		t.Fatalf("unexpected vault params %+v err=%v", params, err)
	}
}

func TestMigrationScenario(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	node.source.SetStake(testUser, wty(500), nil)

	result, err := node.MigrateStaked(context.Background(), testUser)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if result.Credited.Cmp(wty(510)) != 0 {
		t.Fatalf("expected 510 WTY, got %s", result.Credited)
	}
	balance, _ := node.WalletBalance(testUser)
	if balance.Cmp(wty(510)) != 0 {
		t.Fatalf("expected wallet 510, got %s", balance)
	}
	if migrated, _ := node.IsMigrated(testUser); !migrated {
		t.Fatalf("expected migrated")
	}
	types := node.emitter.types()
	if len(types) != 2 || types[0] != events.TypeWalletCredited || types[1] != events.TypeMigrationCompleted {
		t.Fatalf("unexpected events %v", types)
	}

	node.emitter.reset()
	if _, err := node.MigrateStaked(context.Background(), testUser); !errors.Is(err, migration.ErrAlreadyMigrated) {
		t.Fatalf("expected ErrAlreadyMigrated, got %v", err)
	}
	if len(node.emitter.types()) != 0 {
		t.Fatalf("failed call must publish nothing")
	}
	balance, _ = node.WalletBalance(testUser)
	if balance.Cmp(wty(510)) != 0 {
		t.Fatalf("balance changed on failed migration: %s", balance)
	}
}

func TestConcurrentMigrationCreditsOnce(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	node.source.SetStake(testUser, wty(500), nil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := node.MigrateStaked(context.Background(), testUser); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful migration, got %d", successes)
	}
	balance, _ := node.WalletBalance(testUser)
	if balance.Cmp(wty(510)) != 0 {
		t.Fatalf("expected a single credit of 510, got %s", balance)
	}
}

func TestSetLoggerWhileMigrating(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		account := testAddr(byte(0x20 + i))
		node.source.SetStake(account, wty(100), nil)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := node.MigrateStaked(context.Background(), account); err != nil {
				t.Errorf("migrate: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			node.SetLogger(nil)
		}()
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		if migrated, _ := node.IsMigrated(testAddr(byte(0x20 + i))); !migrated {
			t.Fatalf("account %d not migrated", i)
		}
	}
}

func TestRevokedGatewayLeavesAccountUnmigrated(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	node.source.SetStake(testUser, wty(500), nil)
	if err := node.SetAuthorized(testOwner, GatewayAddress, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	node.emitter.reset()
	if _, err := node.MigrateStaked(context.Background(), testUser); !errors.Is(err, staking.ErrCallerNotAuthorized) {
		t.Fatalf("expected ErrCallerNotAuthorized, got %v", err)
	}
	if migrated, _ := node.IsMigrated(testUser); migrated {
		t.Fatalf("failed migration must not leave the flag set")
	}
	if len(node.emitter.types()) != 0 {
		t.Fatalf("failed migration must not publish events")
	}
	if err := node.SetAuthorized(testOwner, GatewayAddress, true); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := node.MigrateStaked(context.Background(), testUser); err != nil {
		t.Fatalf("retry after restore: %v", err)
	}
}

func TestVaultPurchaseScenario(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	if err := node.TokenMint(token.SymbolUSDT, testUser, testUser, wty(100)); err != nil {
		t.Fatalf("mint usdt: %v", err)
	}
	if err := node.TokenApprove(token.SymbolUSDT, testUser, VaultAddress, wty(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	credited, err := node.Buy(testUser, wty(100))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if credited.Cmp(wty(2000)) != 0 {
		t.Fatalf("expected 2000 WTY, got %s", credited)
	}
	paid, _ := node.TokenBalance(token.SymbolUSDT, testTreasury)
	if paid.Cmp(wty(100)) != 0 {
		t.Fatalf("expected treasury +100 USDT, got %s", paid)
	}

	if _, err := node.Buy(testUser, wty(1)); !errors.Is(err, vault.ErrPaymentTransferFailed) {
		t.Fatalf("expected ErrPaymentTransferFailed, got %v", err)
	}
	balance, _ := node.WalletBalance(testUser)
	if balance.Cmp(wty(2000)) != 0 {
		t.Fatalf("failed payment must not credit, got %s", balance)
	}
}

func TestStakeScenarioAndOracleIndependence(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	if err := node.TokenMint(token.SymbolUSDT, testUser, testUser, wty(101)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := node.TokenApprove(token.SymbolUSDT, testUser, VaultAddress, wty(101)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := node.Buy(testUser, wty(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	index, err := node.Stake(testUser, 0)
	if err != nil || index != 0 {
		t.Fatalf("stake: index=%d err=%v", index, err)
	}
	balance, _ := node.WalletBalance(testUser)
	if balance.Cmp(wty(1600)) != 0 {
		t.Fatalf("expected 1600 remaining, got %s", balance)
	}
	position, err := node.Position(testUser, 0)
	if err != nil || !position.Active || position.PlanID != 0 {
		t.Fatalf("unexpected position %+v err=%v", position, err)
	}

	// manipulated oracle: $100 per WTY
	if err := node.feed.SetPriceCents(10000); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if _, err := node.Buy(testAttacker, wty(1)); err == nil {
		t.Fatalf("attacker without funds must not buy")
	}
	if err := node.TokenMint(token.SymbolUSDT, testAttacker, testAttacker, wty(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := node.TokenApprove(token.SymbolUSDT, testAttacker, VaultAddress, wty(1)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := node.Buy(testAttacker, wty(1)); err != nil {
		t.Fatalf("attacker buy: %v", err)
	}
	if _, err := node.Stake(testAttacker, 2); !errors.Is(err, staking.ErrInsufficientWalletBalance) {
		t.Fatalf("expected ErrInsufficientWalletBalance, got %v", err)
	}
	attacker, _ := node.WalletBalance(testAttacker)
	if attacker.Cmp(wty(20)) != 0 {
		t.Fatalf("expected attacker to keep 20 WTY, got %s", attacker)
	}
	view, err := node.Valuation(context.Background(), testAttacker)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if view.WalletUSD.Cmp(wty(2000)) != 0 {
		t.Fatalf("valuation follows the market price, got %s", view.WalletUSD)
	}
}

func TestAdministrationRequiresOwner(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB())
	if err := node.SetAuthorized(testAttacker, testAttacker, true); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if node.IsAuthorized(testAttacker) {
		t.Fatalf("attacker must not be authorized")
	}
	if err := node.SetPaused(testAttacker, common.ModuleVault, true); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := node.SetPaused(testOwner, common.ModuleMigration, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	node.source.SetStake(testUser, wty(1), nil)
	if _, err := node.MigrateStaked(context.Background(), testUser); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := node.SetPaused(testOwner, common.ModuleMigration, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := node.MigrateStaked(context.Background(), testUser); err != nil {
		t.Fatalf("migrate after resume: %v", err)
	}
	if err := node.TransferOwnership(testOwner, testUser); err != nil {
		t.Fatalf("transfer ownership: %v", err)
	}
	if owner, _ := node.Owner(); owner != testUser {
		t.Fatalf("owner not rotated")
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	node := newTestNode(t, db)
	node.source.SetStake(testUser, wty(500), nil)
	if _, err := node.MigrateStaked(context.Background(), testUser); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node.Close()

	reopened, err := storage.NewLevelDB(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again := NewNode(reopened, node.source, nil)
	defer again.Close()
	if !again.Initialised() {
		t.Fatalf("genesis must persist")
	}
	balance, _ := again.WalletBalance(testUser)
	if balance.Cmp(wty(510)) != 0 {
		t.Fatalf("expected persisted balance 510, got %s", balance)
	}
	if _, err := again.MigrateStaked(context.Background(), testUser); !errors.Is(err, migration.ErrAlreadyMigrated) {
		t.Fatalf("expected ErrAlreadyMigrated after reopen, got %v", err)
	}
	if _, err := again.Valuation(context.Background(), testUser); !errors.Is(err, ErrPriceFeedUnavailable) {
		t.Fatalf("expected ErrPriceFeedUnavailable, got %v", err)
	}
}
