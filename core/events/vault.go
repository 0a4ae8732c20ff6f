package events

import (
	"math/big"

	"wity/core/types"
)

const (
	// TypeVaultPurchase is emitted when payment is pulled to the treasury and
	// the buyer's staking wallet credited.
	TypeVaultPurchase = "vault.purchase"
	// TypeVaultTreasuryUpdated is emitted when the owner rotates the treasury.
	TypeVaultTreasuryUpdated = "vault.treasuryUpdated"
)

// VaultPurchase records a fixed-rate purchase.
type VaultPurchase struct {
	Buyer    [20]byte
	Treasury [20]byte
	Asset    string
	Paid     *big.Int
	Credited *big.Int
	Rate     uint64
}

// EventType satisfies the Event interface.
func (VaultPurchase) EventType() string { return TypeVaultPurchase }

// Event converts the structured payload into a broadcastable event.
func (e VaultPurchase) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultPurchase,
		Attributes: map[string]string{
			"buyer":    formatAddress(e.Buyer),
			"treasury": formatAddress(e.Treasury),
			"asset":    normalizeSymbol(e.Asset),
			"paid":     formatAmount(e.Paid),
			"credited": formatAmount(e.Credited),
			"rate":     formatUint(e.Rate),
		},
	}
}

// VaultTreasuryUpdated records a treasury rotation.
type VaultTreasuryUpdated struct {
	Previous [20]byte
	Treasury [20]byte
}

// EventType satisfies the Event interface.
func (VaultTreasuryUpdated) EventType() string { return TypeVaultTreasuryUpdated }

// Event converts the structured payload into a broadcastable event.
func (e VaultTreasuryUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultTreasuryUpdated,
		Attributes: map[string]string{
			"previous": formatAddress(e.Previous),
			"treasury": formatAddress(e.Treasury),
		},
	}
}
