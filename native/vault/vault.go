package vault

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"wity/core/events"
	"wity/core/state"
	"wity/native/common"
)

var (
	// ErrPaymentTransferFailed wraps any failure pulling the payment asset.
	ErrPaymentTransferFailed = errors.New("vault: payment transfer failed")
	ErrInvalidAmount         = errors.New("vault: payment amount must be positive")
	ErrZeroAddress           = errors.New("vault: zero address")
	ErrNotConfigured         = errors.New("vault: parameters not initialised")
	ErrAlreadyConfigured     = errors.New("vault: parameters already initialised")
	ErrInvalidRate           = errors.New("vault: rate must be positive")
)

// DefaultRate is the number of WTY credited per unit of payment asset.
const DefaultRate = uint64(20)

var paramsKey = []byte("vault/params")

// Params are the vault's persisted settings.
type Params struct {
	Asset    string
	Treasury [20]byte
	Rate     uint64
}

// Validate checks the parameters before they are stored.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Asset) == "" {
		return fmt.Errorf("vault: payment asset required")
	}
	if p.Treasury == ([20]byte{}) {
		return ErrZeroAddress
	}
	if p.Rate == 0 {
		return ErrInvalidRate
	}
	return nil
}

// Payment pulls an approved amount of the payment asset.
type Payment interface {
	TransferFrom(symbol string, spender, from, to [20]byte, amount *big.Int) error
}

// Ledger credits staking wallets.
type Ledger interface {
	DepositToWallet(caller, account [20]byte, amount *big.Int) error
}

// OwnerChecker gates treasury rotation.
type OwnerChecker interface {
	RequireOwner(caller [20]byte) error
}

// Vault sells staking credit at a fixed rate against the payment asset.
type Vault struct {
	state   state.Store
	ledger  Ledger
	payment Payment
	owner   OwnerChecker
	address [20]byte
	pauses  common.PauseView
	emitter events.Emitter
}

// New wires a vault. address is the identity used both as the payment spender
// and as the authorized ledger caller.
func New(st state.Store, ledger Ledger, payment Payment, owner OwnerChecker, address [20]byte) *Vault {
	return &Vault{
		state:   st,
		ledger:  ledger,
		payment: payment,
		owner:   owner,
		address: address,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter overrides the event emitter used by the vault.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetPauses wires the module pause view.
func (v *Vault) SetPauses(p common.PauseView) { v.pauses = p }

// Address returns the vault's caller identity.
func (v *Vault) Address() [20]byte { return v.address }

// InitParams stores the initial parameters. It runs once at genesis.
func (v *Vault) InitParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	ok, err := v.state.KVGet(paramsKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyConfigured
	}
	params.Asset = strings.ToUpper(strings.TrimSpace(params.Asset))
	return v.state.KVPut(paramsKey, &params)
}

// Params returns the stored parameters.
func (v *Vault) Params() (Params, error) {
	var params Params
	ok, err := v.state.KVGet(paramsKey, &params)
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return Params{}, ErrNotConfigured
	}
	return params, nil
}

// SetTreasury rotates the payment destination.
func (v *Vault) SetTreasury(caller, treasury [20]byte) error {
	if v.owner == nil {
		return ErrNotConfigured
	}
	if err := v.owner.RequireOwner(caller); err != nil {
		return err
	}
	if treasury == ([20]byte{}) {
		return ErrZeroAddress
	}
	params, err := v.Params()
	if err != nil {
		return err
	}
	previous := params.Treasury
	params.Treasury = treasury
	if err := v.state.KVPut(paramsKey, &params); err != nil {
		return err
	}
	v.emitter.Emit(events.VaultTreasuryUpdated{Previous: previous, Treasury: treasury})
	return nil
}

// Quote returns the staking credit a payment of amount buys.
func (v *Vault) Quote(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	params, err := v.Params()
	if err != nil {
		return nil, err
	}
	return common.Mul(amount, new(big.Int).SetUint64(params.Rate))
}

// Buy pulls amount of the payment asset from account to the treasury and
// credits amount*rate to account's staking wallet. Nothing is credited unless
// the payment succeeds.
func (v *Vault) Buy(account [20]byte, amount *big.Int) (*big.Int, error) {
	if err := common.Guard(v.pauses, common.ModuleVault); err != nil {
		return nil, err
	}
	if account == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	params, err := v.Params()
	if err != nil {
		return nil, err
	}
	credit, err := common.Mul(amount, new(big.Int).SetUint64(params.Rate))
	if err != nil {
		return nil, err
	}
	if err := v.payment.TransferFrom(params.Asset, v.address, account, params.Treasury, amount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentTransferFailed, err)
	}
	if err := v.ledger.DepositToWallet(v.address, account, credit); err != nil {
		return nil, err
	}
	v.emitter.Emit(events.VaultPurchase{
		Buyer:    account,
		Treasury: params.Treasury,
		Asset:    params.Asset,
		Paid:     new(big.Int).Set(amount),
		Credited: new(big.Int).Set(credit),
		Rate:     params.Rate,
	})
	return credit, nil
}
