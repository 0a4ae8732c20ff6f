package events

import (
	"math/big"

	"wity/core/types"
)

// TypeMigrationCompleted is emitted once per account when the legacy stake is
// credited into the staking wallet.
const TypeMigrationCompleted = "migration.completed"

// MigrationCompleted records a successful legacy migration.
type MigrationCompleted struct {
	Account   [20]byte
	Principal *big.Int
	Reward    *big.Int
	Credited  *big.Int
}

// EventType satisfies the Event interface.
func (MigrationCompleted) EventType() string { return TypeMigrationCompleted }

// Event converts the structured payload into a broadcastable event.
func (e MigrationCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeMigrationCompleted,
		Attributes: map[string]string{
			"account":   formatAddress(e.Account),
			"principal": formatAmount(e.Principal),
			"reward":    formatAmount(e.Reward),
			"credited":  formatAmount(e.Credited),
		},
	}
}
