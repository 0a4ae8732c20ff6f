package core

import (
	"errors"
	"fmt"
	"math/big"

	"wity/native/auth"
	"wity/native/common"
	"wity/native/staking"
	"wity/native/token"
	"wity/native/vault"
)

// ErrGenesisApplied is returned when InitGenesis runs against initialised state.
var ErrGenesisApplied = errors.New("core: genesis already applied")

// Allocation mints an initial balance.
type Allocation struct {
	Symbol  string
	Account [20]byte
	Amount  *big.Int
}

// Genesis is the initial economy layout.
type Genesis struct {
	Owner        [20]byte
	Treasury     [20]byte
	PaymentAsset string
	VaultRate    uint64
	Plans        []staking.Plan
	Tokens       []token.Metadata
	Allocations  []Allocation
	// AMMPairs are flagged on the WTY token.
	AMMPairs [][20]byte
	// FeeExclusions are exempted from WTY taxes in addition to the vault and
	// migration gateway.
	FeeExclusions [][20]byte
	// Authorized are credited callers in addition to the vault and gateway.
	Authorized [][20]byte
}

// DefaultGenesis returns the launch layout: WTY with a 1% buy and 2% sell tax
// routed to rewardPool, an open-mint USDT payment asset, the default plan
// table and a vault rate of 20.
func DefaultGenesis(owner, treasury, rewardPool [20]byte) Genesis {
	return Genesis{
		Owner:        owner,
		Treasury:     treasury,
		PaymentAsset: token.SymbolUSDT,
		VaultRate:    vault.DefaultRate,
		Plans:        staking.DefaultPlans(),
		Tokens: []token.Metadata{
			{
				Symbol:   token.SymbolWTY,
				Name:     "Wity",
				Decimals: common.Decimals,
				Fees:     token.FeePolicy{BuyBps: 100, SellBps: 200, Collector: rewardPool},
			},
			{Symbol: token.SymbolUSDT, Name: "Tether USD", Decimals: common.Decimals, OpenMint: true},
		},
	}
}

// InitGenesis applies g in a single unit of work.
func (n *Node) InitGenesis(g Genesis) error {
	return n.update("genesis", func(e *engines) error {
		if _, err := e.auth.Owner(); err == nil {
			return ErrGenesisApplied
		} else if !errors.Is(err, auth.ErrOwnerNotSet) {
			return err
		}
		if err := e.auth.InitOwner(g.Owner); err != nil {
			return fmt.Errorf("genesis owner: %w", err)
		}
		authorized := append([][20]byte{VaultAddress, GatewayAddress}, g.Authorized...)
		for _, addr := range authorized {
			if err := e.auth.SetAuthorized(g.Owner, addr, true); err != nil {
				return fmt.Errorf("genesis authorize: %w", err)
			}
		}
		if _, err := e.ledger.PublishPlans(g.Owner, g.Plans); err != nil {
			return fmt.Errorf("genesis plans: %w", err)
		}
		for _, meta := range g.Tokens {
			if err := e.tokens.Register(meta); err != nil {
				return fmt.Errorf("genesis token %s: %w", meta.Symbol, err)
			}
		}
		for i, alloc := range g.Allocations {
			if err := e.tokens.Mint(alloc.Symbol, g.Owner, alloc.Account, alloc.Amount); err != nil {
				return fmt.Errorf("genesis allocation %d: %w", i, err)
			}
		}
		if _, err := e.tokens.Metadata(token.SymbolWTY); err == nil {
			exclusions := append([][20]byte{VaultAddress, GatewayAddress}, g.FeeExclusions...)
			for _, addr := range exclusions {
				if err := e.tokens.ExcludeFromFee(token.SymbolWTY, g.Owner, addr, true); err != nil {
					return fmt.Errorf("genesis fee exclusion: %w", err)
				}
			}
			for _, pair := range g.AMMPairs {
				if err := e.tokens.SetAutomatedMarketMakerPair(token.SymbolWTY, g.Owner, pair, true); err != nil {
					return fmt.Errorf("genesis amm pair: %w", err)
				}
			}
		}
		rate := g.VaultRate
		if rate == 0 {
			rate = vault.DefaultRate
		}
		if _, err := e.tokens.Metadata(g.PaymentAsset); err != nil {
			return fmt.Errorf("genesis payment asset %q: %w", g.PaymentAsset, err)
		}
		if err := e.vault.InitParams(vault.Params{Asset: g.PaymentAsset, Treasury: g.Treasury, Rate: rate}); err != nil {
			return fmt.Errorf("genesis vault: %w", err)
		}
		return nil
	})
}

// Initialised reports whether genesis has been applied.
func (n *Node) Initialised() bool {
	_, err := n.Owner()
	return err == nil
}
