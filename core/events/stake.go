package events

import (
	"math/big"

	"wity/core/types"
)

const (
	// TypeWalletCredited captures a credit to an account's staking wallet.
	TypeWalletCredited = "staking.walletCredited"
	// TypeStakePositionCreated captures a wallet debit locked into a plan.
	TypeStakePositionCreated = "staking.positionCreated"
	// TypePlansPublished is emitted when a new plan table version goes live.
	TypePlansPublished = "staking.plansPublished"
)

// WalletCredited records an authorized credit into the staking wallet.
type WalletCredited struct {
	Account [20]byte
	Source  [20]byte
	Amount  *big.Int
	Balance *big.Int
}

// EventType satisfies the Event interface.
func (WalletCredited) EventType() string { return TypeWalletCredited }

// Event converts the structured payload into a broadcastable event.
func (e WalletCredited) Event() *types.Event {
	return &types.Event{
		Type: TypeWalletCredited,
		Attributes: map[string]string{
			"account": formatAddress(e.Account),
			"source":  formatAddress(e.Source),
			"amount":  formatAmount(e.Amount),
			"balance": formatAmount(e.Balance),
		},
	}
}

// StakePositionCreated records a new stake position.
type StakePositionCreated struct {
	Account     [20]byte
	Index       uint64
	PlanID      uint64
	PlanVersion uint64
	Amount      *big.Int
	StartTime   uint64
	Balance     *big.Int
}

// EventType satisfies the Event interface.
func (StakePositionCreated) EventType() string { return TypeStakePositionCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakePositionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeStakePositionCreated,
		Attributes: map[string]string{
			"account":     formatAddress(e.Account),
			"index":       formatUint(e.Index),
			"planId":      formatUint(e.PlanID),
			"planVersion": formatUint(e.PlanVersion),
			"amount":      formatAmount(e.Amount),
			"startTime":   formatUint(e.StartTime),
			"balance":     formatAmount(e.Balance),
		},
	}
}

// PlansPublished records a plan table rotation.
type PlansPublished struct {
	Owner   [20]byte
	Version uint64
	Count   int
}

// EventType satisfies the Event interface.
func (PlansPublished) EventType() string { return TypePlansPublished }

// Event converts the structured payload into a broadcastable event.
func (e PlansPublished) Event() *types.Event {
	return &types.Event{
		Type: TypePlansPublished,
		Attributes: map[string]string{
			"owner":   formatAddress(e.Owner),
			"version": formatUint(e.Version),
			"count":   formatUint(uint64(e.Count)),
		},
	}
}
