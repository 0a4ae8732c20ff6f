package staking

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"wity/core/events"
	"wity/core/state"
	"wity/native/common"
)

const (
	walletPrefix        = "staking/wallet/"
	migratedPrefix      = "staking/migrated/"
	positionCountPrefix = "staking/positions/count/"
	positionPrefix      = "staking/positions/item/"
	planVersionKey      = "staking/plans/version"
	planTablePrefix     = "staking/plans/table/"
)

func walletKey(addr [20]byte) []byte {
	return append([]byte(walletPrefix), addr[:]...)
}

func migratedKey(addr [20]byte) []byte {
	return append([]byte(migratedPrefix), addr[:]...)
}

func positionCountKey(addr [20]byte) []byte {
	return append([]byte(positionCountPrefix), addr[:]...)
}

func positionKey(addr [20]byte, index uint64) []byte {
	key := append([]byte(positionPrefix), addr[:]...)
	key = append(key, '/')
	return strconv.AppendUint(key, index, 10)
}

func planTableKey(version uint64) []byte {
	return strconv.AppendUint([]byte(planTablePrefix), version, 10)
}

// Authorizer is the slice of the auth registry the ledger depends on.
type Authorizer interface {
	IsAuthorized(addr [20]byte) bool
	RequireOwner(caller [20]byte) error
}

// Ledger owns every account's staking wallet, migrated flag and positions.
type Ledger struct {
	state   state.Store
	auth    Authorizer
	pauses  common.PauseView
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewLedger binds a ledger to st. The authorizer is queried on every call.
func NewLedger(st state.Store, auth Authorizer) *Ledger {
	return &Ledger{
		state:   st,
		auth:    auth,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
}

// SetEmitter overrides the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetPauses wires the module pause view.
func (l *Ledger) SetPauses(p common.PauseView) { l.pauses = p }

// SetNowFunc overrides the clock. Intended for tests.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if now == nil {
		l.nowFn = time.Now
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() uint64 {
	ts := l.nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (l *Ledger) authorized(caller [20]byte) bool {
	return l.auth != nil && l.auth.IsAuthorized(caller)
}

// WalletBalance returns the unstaked balance available for staking.
func (l *Ledger) WalletBalance(account [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := l.state.KVGet(walletKey(account), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (l *Ledger) putWalletBalance(account [20]byte, balance *big.Int) error {
	return l.state.KVPut(walletKey(account), balance)
}

// DepositToWallet credits amount to account's staking wallet. Only addresses
// the auth registry marks as authorized may credit.
func (l *Ledger) DepositToWallet(caller, account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !l.authorized(caller) {
		return ErrCallerNotAuthorized
	}
	if account == ([20]byte{}) {
		return ErrInvalidAccount
	}
	balance, err := l.WalletBalance(account)
	if err != nil {
		return err
	}
	updated, err := common.Add(balance, amount)
	if err != nil {
		return fmt.Errorf("staking: credit: %w", err)
	}
	if err := l.putWalletBalance(account, updated); err != nil {
		return err
	}
	l.emitter.Emit(events.WalletCredited{
		Account: account,
		Source:  caller,
		Amount:  new(big.Int).Set(amount),
		Balance: new(big.Int).Set(updated),
	})
	return nil
}

// IsMigrated reports whether account has completed the legacy migration.
func (l *Ledger) IsMigrated(account [20]byte) (bool, error) {
	var migrated bool
	ok, err := l.state.KVGet(migratedKey(account), &migrated)
	if err != nil {
		return false, err
	}
	return ok && migrated, nil
}

// MarkMigrated sets the one-way migrated flag. It fails if the flag is
// already set.
func (l *Ledger) MarkMigrated(caller, account [20]byte) error {
	if account == ([20]byte{}) {
		return ErrInvalidAccount
	}
	if !l.authorized(caller) {
		return ErrCallerNotAuthorized
	}
	migrated, err := l.IsMigrated(account)
	if err != nil {
		return err
	}
	if migrated {
		return ErrAlreadyMigrated
	}
	return l.state.KVPut(migratedKey(account), true)
}

// PlanTable returns the active plan table. A ledger without a published
// table reports version 0 and no plans.
func (l *Ledger) PlanTable() (PlanTable, error) {
	var version uint64
	ok, err := l.state.KVGet([]byte(planVersionKey), &version)
	if err != nil {
		return PlanTable{}, err
	}
	if !ok || version == 0 {
		return PlanTable{}, nil
	}
	var plans []Plan
	if _, err := l.state.KVGet(planTableKey(version), &plans); err != nil {
		return PlanTable{}, err
	}
	return PlanTable{Version: version, Plans: plans}, nil
}

// Plans returns a copy of the active plans.
func (l *Ledger) Plans() ([]Plan, error) {
	table, err := l.PlanTable()
	if err != nil {
		return nil, err
	}
	out := make([]Plan, len(table.Plans))
	for i, plan := range table.Plans {
		out[i] = plan.Copy()
	}
	return out, nil
}

// Plan returns the active plan identified by planID and the table version.
func (l *Ledger) Plan(planID uint64) (Plan, uint64, error) {
	table, err := l.PlanTable()
	if err != nil {
		return Plan{}, 0, err
	}
	if planID >= uint64(len(table.Plans)) {
		return Plan{}, 0, ErrPlanNotFound
	}
	return table.Plans[planID].Copy(), table.Version, nil
}

// RequiredAmount returns the WTY needed to stake planID.
func (l *Ledger) RequiredAmount(planID uint64) (*big.Int, error) {
	plan, _, err := l.Plan(planID)
	if err != nil {
		return nil, err
	}
	return RequiredAmount(plan)
}

// PublishPlans stores plans as a new table version. Positions created under
// earlier versions keep their snapshot.
func (l *Ledger) PublishPlans(caller [20]byte, plans []Plan) (uint64, error) {
	if l.auth == nil {
		return 0, ErrCallerNotAuthorized
	}
	if err := l.auth.RequireOwner(caller); err != nil {
		return 0, err
	}
	if err := ValidatePlans(plans); err != nil {
		return 0, err
	}
	current, err := l.PlanTable()
	if err != nil {
		return 0, err
	}
	version := current.Version + 1
	stored := make([]Plan, len(plans))
	for i, plan := range plans {
		stored[i] = plan.Copy()
	}
	if err := l.state.KVPut(planTableKey(version), stored); err != nil {
		return 0, err
	}
	if err := l.state.KVPut([]byte(planVersionKey), version); err != nil {
		return 0, err
	}
	l.emitter.Emit(events.PlansPublished{Owner: caller, Version: version, Count: len(stored)})
	return version, nil
}

// PositionCount returns how many positions account has opened.
func (l *Ledger) PositionCount(account [20]byte) (uint64, error) {
	var count uint64
	if _, err := l.state.KVGet(positionCountKey(account), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Position returns the position at index.
func (l *Ledger) Position(account [20]byte, index uint64) (StakePosition, error) {
	count, err := l.PositionCount(account)
	if err != nil {
		return StakePosition{}, err
	}
	if index >= count {
		return StakePosition{}, ErrIndexOutOfRange
	}
	var position StakePosition
	ok, err := l.state.KVGet(positionKey(account, index), &position)
	if err != nil {
		return StakePosition{}, err
	}
	if !ok {
		return StakePosition{}, fmt.Errorf("staking: position %d missing from state", index)
	}
	return position, nil
}

// Positions returns every position of account in creation order.
func (l *Ledger) Positions(account [20]byte) ([]StakePosition, error) {
	count, err := l.PositionCount(account)
	if err != nil {
		return nil, err
	}
	out := make([]StakePosition, 0, count)
	for i := uint64(0); i < count; i++ {
		position, err := l.Position(account, i)
		if err != nil {
			return nil, err
		}
		out = append(out, position)
	}
	return out, nil
}

// Stake debits the plan's required amount from account's wallet and opens a
// position with a snapshot of the plan terms. It returns the new index.
func (l *Ledger) Stake(account [20]byte, planID uint64) (uint64, error) {
	if err := common.Guard(l.pauses, common.ModuleStaking); err != nil {
		return 0, err
	}
	if account == ([20]byte{}) {
		return 0, ErrInvalidAccount
	}
	plan, version, err := l.Plan(planID)
	if err != nil {
		return 0, err
	}
	required, err := RequiredAmount(plan)
	if err != nil {
		return 0, err
	}
	balance, err := l.WalletBalance(account)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(required) < 0 {
		return 0, ErrInsufficientWalletBalance
	}
	index, err := l.PositionCount(account)
	if err != nil {
		return 0, err
	}
	position := StakePosition{
		PlanID:         plan.ID,
		Amount:         new(big.Int).Set(required),
		StartTime:      l.now(),
		Duration:       plan.Duration,
		DailyRewardBps: plan.DailyRewardBps,
		Active:         true,
		PlanVersion:    version,
		MinUSDValue:    new(big.Int).Set(plan.MinUSDValue),
	}
	remaining := new(big.Int).Sub(balance, required)
	if err := l.putWalletBalance(account, remaining); err != nil {
		return 0, err
	}
	if err := l.state.KVPut(positionKey(account, index), &position); err != nil {
		return 0, err
	}
	if err := l.state.KVPut(positionCountKey(account), index+1); err != nil {
		return 0, err
	}
	l.emitter.Emit(events.StakePositionCreated{
		Account:     account,
		Index:       index,
		PlanID:      plan.ID,
		PlanVersion: version,
		Amount:      new(big.Int).Set(required),
		StartTime:   position.StartTime,
		Balance:     new(big.Int).Set(remaining),
	})
	return index, nil
}

// Accrued returns the reward accrued so far by the position at index.
func (l *Ledger) Accrued(account [20]byte, index uint64) (*big.Int, error) {
	position, err := l.Position(account, index)
	if err != nil {
		return nil, err
	}
	return AccruedReward(position, l.now())
}
