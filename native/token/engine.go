package token

import (
	"fmt"
	"math/big"

	"wity/core/events"
	"wity/core/state"
	"wity/native/common"
)

// OwnerChecker gates administrative calls.
type OwnerChecker interface {
	RequireOwner(caller [20]byte) error
}

const (
	metaPrefix      = "token/meta/"
	supplyPrefix    = "token/supply/"
	balancePrefix   = "token/balance/"
	allowancePrefix = "token/allowance/"
	excludedPrefix  = "token/feeExcluded/"
	pairPrefix      = "token/ammPair/"
)

func symbolKey(prefix, symbol string) []byte {
	return []byte(prefix + NormalizeSymbol(symbol))
}

func accountKey(prefix, symbol string, addr [20]byte) []byte {
	key := []byte(prefix + NormalizeSymbol(symbol) + "/")
	return append(key, addr[:]...)
}

func allowanceKey(symbol string, owner, spender [20]byte) []byte {
	key := accountKey(allowancePrefix, symbol, owner)
	return append(key, spender[:]...)
}

// Engine maintains balances, allowances and fee policy for every registered
// token.
type Engine struct {
	state   state.Store
	owner   OwnerChecker
	emitter events.Emitter
}

// NewEngine binds the token engine to st.
func NewEngine(st state.Store, owner OwnerChecker) *Engine {
	return &Engine{state: st, owner: owner, emitter: events.NoopEmitter{}}
}

// SetEmitter overrides the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if e.owner == nil {
		return ErrMintNotAllowed
	}
	return e.owner.RequireOwner(caller)
}

// Register stores metadata for a new token.
func (e *Engine) Register(meta Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	meta.Symbol = NormalizeSymbol(meta.Symbol)
	ok, err := e.state.KVGet(symbolKey(metaPrefix, meta.Symbol), nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrTokenExists
	}
	return e.state.KVPut(symbolKey(metaPrefix, meta.Symbol), &meta)
}

// Metadata returns the registered metadata for symbol.
func (e *Engine) Metadata(symbol string) (Metadata, error) {
	var meta Metadata
	ok, err := e.state.KVGet(symbolKey(metaPrefix, symbol), &meta)
	if err != nil {
		return Metadata{}, err
	}
	if !ok {
		return Metadata{}, ErrTokenNotFound
	}
	return meta, nil
}

func (e *Engine) readAmount(key []byte) (*big.Int, error) {
	value := new(big.Int)
	if _, err := e.state.KVGet(key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// BalanceOf returns the balance of addr.
func (e *Engine) BalanceOf(symbol string, addr [20]byte) (*big.Int, error) {
	if _, err := e.Metadata(symbol); err != nil {
		return nil, err
	}
	return e.readAmount(accountKey(balancePrefix, symbol, addr))
}

// Allowance returns how much spender may pull from owner.
func (e *Engine) Allowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	if _, err := e.Metadata(symbol); err != nil {
		return nil, err
	}
	return e.readAmount(allowanceKey(symbol, owner, spender))
}

// TotalSupply returns the minted supply of symbol.
func (e *Engine) TotalSupply(symbol string) (*big.Int, error) {
	if _, err := e.Metadata(symbol); err != nil {
		return nil, err
	}
	return e.readAmount(symbolKey(supplyPrefix, symbol))
}

// IsExcludedFromFee reports whether addr is exempt from taxes on symbol.
func (e *Engine) IsExcludedFromFee(symbol string, addr [20]byte) (bool, error) {
	var excluded bool
	ok, err := e.state.KVGet(accountKey(excludedPrefix, symbol, addr), &excluded)
	if err != nil {
		return false, err
	}
	return ok && excluded, nil
}

// IsMarketPair reports whether addr is flagged as an AMM pair for symbol.
func (e *Engine) IsMarketPair(symbol string, addr [20]byte) (bool, error) {
	var marked bool
	ok, err := e.state.KVGet(accountKey(pairPrefix, symbol, addr), &marked)
	if err != nil {
		return false, err
	}
	return ok && marked, nil
}

// Mint creates amount new units for to. Only the owner may mint unless the
// token is open-mint.
func (e *Engine) Mint(symbol string, caller, to [20]byte, amount *big.Int) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if !meta.OpenMint {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
	}
	supply, err := e.readAmount(symbolKey(supplyPrefix, meta.Symbol))
	if err != nil {
		return err
	}
	newSupply, err := common.Add(supply, amount)
	if err != nil {
		return fmt.Errorf("token: mint: %w", err)
	}
	balance, err := e.readAmount(accountKey(balancePrefix, meta.Symbol, to))
	if err != nil {
		return err
	}
	newBalance, err := common.Add(balance, amount)
	if err != nil {
		return fmt.Errorf("token: mint: %w", err)
	}
	if err := e.state.KVPut(symbolKey(supplyPrefix, meta.Symbol), newSupply); err != nil {
		return err
	}
	if err := e.state.KVPut(accountKey(balancePrefix, meta.Symbol, to), newBalance); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Asset: meta.Symbol, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (e *Engine) Approve(symbol string, owner, spender [20]byte, amount *big.Int) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if owner == ([20]byte{}) || spender == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := e.state.KVPut(allowanceKey(meta.Symbol, owner, spender), amount); err != nil {
		return err
	}
	e.emitter.Emit(events.Approval{Asset: meta.Symbol, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount from from to to, applying the token's tax policy.
func (e *Engine) Transfer(symbol string, from, to [20]byte, amount *big.Int) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	return e.move(meta, from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender, consuming
// allowance.
func (e *Engine) TransferFrom(symbol string, spender, from, to [20]byte, amount *big.Int) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := e.readAmount(allowanceKey(meta.Symbol, from, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.move(meta, from, to, amount); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(allowance, amount)
	return e.state.KVPut(allowanceKey(meta.Symbol, from, spender), remaining)
}

func (e *Engine) move(meta Metadata, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return ErrZeroAddress
	}
	fromBalance, err := e.readAmount(accountKey(balancePrefix, meta.Symbol, from))
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	kind, bps, err := e.feeFor(meta, from, to)
	if err != nil {
		return err
	}
	fee := big.NewInt(0)
	if bps > 0 {
		fee, err = common.Bps(amount, bps)
		if err != nil {
			return err
		}
	}
	net := new(big.Int).Sub(amount, fee)

	if err := e.state.KVPut(accountKey(balancePrefix, meta.Symbol, from), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := e.credit(meta.Symbol, to, net); err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := e.credit(meta.Symbol, meta.Fees.Collector, fee); err != nil {
			return err
		}
		e.emitter.Emit(events.FeeCharged{
			Asset:     meta.Symbol,
			From:      from,
			Collector: meta.Fees.Collector,
			Kind:      kind,
			Bps:       bps,
			Amount:    new(big.Int).Set(fee),
		})
		e.emitter.Emit(events.Transfer{Asset: meta.Symbol, From: from, To: meta.Fees.Collector, Amount: new(big.Int).Set(fee)})
	}
	e.emitter.Emit(events.Transfer{Asset: meta.Symbol, From: from, To: to, Amount: net})
	return nil
}

func (e *Engine) credit(symbol string, addr [20]byte, amount *big.Int) error {
	balance, err := e.readAmount(accountKey(balancePrefix, symbol, addr))
	if err != nil {
		return err
	}
	updated, err := common.Add(balance, amount)
	if err != nil {
		return fmt.Errorf("token: credit: %w", err)
	}
	return e.state.KVPut(accountKey(balancePrefix, symbol, addr), updated)
}

// feeFor selects the tax that applies to a movement. Excluded parties on
// either side pay nothing; transfers out of a pair are buys and transfers into
// a pair are sells.
func (e *Engine) feeFor(meta Metadata, from, to [20]byte) (string, uint64, error) {
	if !meta.Fees.Enabled() {
		return "", 0, nil
	}
	for _, party := range [][20]byte{from, to} {
		excluded, err := e.IsExcludedFromFee(meta.Symbol, party)
		if err != nil {
			return "", 0, err
		}
		if excluded {
			return "", 0, nil
		}
	}
	fromPair, err := e.IsMarketPair(meta.Symbol, from)
	if err != nil {
		return "", 0, err
	}
	toPair, err := e.IsMarketPair(meta.Symbol, to)
	if err != nil {
		return "", 0, err
	}
	switch {
	case fromPair:
		return FeeKindBuy, meta.Fees.BuyBps, nil
	case toPair:
		return FeeKindSell, meta.Fees.SellBps, nil
	default:
		return FeeKindTransfer, meta.Fees.TransferBps, nil
	}
}

// ExcludeFromFee exempts or re-includes account in symbol's taxes.
func (e *Engine) ExcludeFromFee(symbol string, caller, account [20]byte, excluded bool) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if account == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := e.state.KVPut(accountKey(excludedPrefix, meta.Symbol, account), excluded); err != nil {
		return err
	}
	e.emitter.Emit(events.FeeExclusionUpdated{Asset: meta.Symbol, Account: account, Excluded: excluded})
	return nil
}

// SetAutomatedMarketMakerPair flags pair so that transfers into it are taxed
// as sells and transfers out of it as buys.
func (e *Engine) SetAutomatedMarketMakerPair(symbol string, caller, pair [20]byte, marked bool) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if pair == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := e.state.KVPut(accountKey(pairPrefix, meta.Symbol, pair), marked); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketPairUpdated{Asset: meta.Symbol, Pair: pair, Marked: marked})
	return nil
}

// SetFeePolicy replaces symbol's tax policy.
func (e *Engine) SetFeePolicy(symbol string, caller [20]byte, policy FeePolicy) error {
	meta, err := e.Metadata(symbol)
	if err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	meta.Fees = policy
	return e.state.KVPut(symbolKey(metaPrefix, meta.Symbol), &meta)
}
