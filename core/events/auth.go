package events

import (
	"strconv"

	"wity/core/types"
)

const (
	// TypeAuthCallerUpdated is emitted when the owner grants or revokes the
	// right to credit staking wallets.
	TypeAuthCallerUpdated = "auth.callerUpdated"
	// TypeOwnershipTransferred is emitted when administration moves to a new owner.
	TypeOwnershipTransferred = "auth.ownershipTransferred"
)

// AuthCallerUpdated records an authorization change.
type AuthCallerUpdated struct {
	Owner   [20]byte
	Caller  [20]byte
	Allowed bool
}

// EventType satisfies the Event interface.
func (AuthCallerUpdated) EventType() string { return TypeAuthCallerUpdated }

// Event converts the structured payload into a broadcastable event.
func (e AuthCallerUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeAuthCallerUpdated,
		Attributes: map[string]string{
			"owner":   formatAddress(e.Owner),
			"caller":  formatAddress(e.Caller),
			"allowed": strconv.FormatBool(e.Allowed),
		},
	}
}

// OwnershipTransferred records an owner rotation.
type OwnershipTransferred struct {
	Previous [20]byte
	Owner    [20]byte
}

// EventType satisfies the Event interface.
func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

// Event converts the structured payload into a broadcastable event.
func (e OwnershipTransferred) Event() *types.Event {
	attrs := map[string]string{"owner": formatAddress(e.Owner)}
	if !zeroAddress(e.Previous) {
		attrs["previous"] = formatAddress(e.Previous)
	}
	return &types.Event{Type: TypeOwnershipTransferred, Attributes: attrs}
}
