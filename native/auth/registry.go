package auth

import (
	"bytes"
	"fmt"
	"sort"

	"wity/core/events"
	"wity/core/state"
)

var (
	ownerKey        = []byte("auth/owner")
	callerIndexKey  = []byte("auth/callers")
	callerKeyPrefix = "auth/caller/"
)

func callerKey(addr [20]byte) []byte {
	return append([]byte(callerKeyPrefix), addr[:]...)
}

// Registry tracks the single administrator and the components allowed to
// credit staking wallets on behalf of users.
type Registry struct {
	state   state.Store
	emitter events.Emitter
}

// NewRegistry binds the registry to the supplied state.
func NewRegistry(st state.Store) *Registry {
	return &Registry{state: st, emitter: events.NoopEmitter{}}
}

// SetEmitter overrides the event emitter used by the registry.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// InitOwner stores the first owner. It can only run once, at genesis.
func (r *Registry) InitOwner(owner [20]byte) error {
	if owner == ([20]byte{}) {
		return ErrZeroAddress
	}
	var existing [20]byte
	ok, err := r.state.KVGet(ownerKey, &existing)
	if err != nil {
		return err
	}
	if ok {
		return ErrOwnerAlreadySet
	}
	if err := r.state.KVPut(ownerKey, owner); err != nil {
		return err
	}
	r.emitter.Emit(events.OwnershipTransferred{Owner: owner})
	return nil
}

// Owner returns the current administrator.
func (r *Registry) Owner() ([20]byte, error) {
	var owner [20]byte
	ok, err := r.state.KVGet(ownerKey, &owner)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, ErrOwnerNotSet
	}
	return owner, nil
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner. Before
// the owner is initialised every caller is refused and the error also wraps
// ErrOwnerNotSet.
func (r *Registry) RequireOwner(caller [20]byte) error {
	owner, err := r.Owner()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

// TransferOwnership hands administration to newOwner.
func (r *Registry) TransferOwnership(caller, newOwner [20]byte) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := r.state.KVPut(ownerKey, newOwner); err != nil {
		return err
	}
	r.emitter.Emit(events.OwnershipTransferred{Previous: caller, Owner: newOwner})
	return nil
}

// SetAuthorized grants or revokes target's right to credit staking wallets.
func (r *Registry) SetAuthorized(caller, target [20]byte, allowed bool) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if target == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := r.state.KVPut(callerKey(target), allowed); err != nil {
		return err
	}
	if err := r.updateIndex(target, allowed); err != nil {
		return err
	}
	r.emitter.Emit(events.AuthCallerUpdated{Owner: caller, Caller: target, Allowed: allowed})
	return nil
}

// IsAuthorized reports whether target may credit staking wallets. Unknown
// addresses and read failures are treated as unauthorized.
func (r *Registry) IsAuthorized(target [20]byte) bool {
	var allowed bool
	ok, err := r.state.KVGet(callerKey(target), &allowed)
	if err != nil || !ok {
		return false
	}
	return allowed
}

// AuthorizedCallers lists the currently authorized addresses in byte order.
func (r *Registry) AuthorizedCallers() ([][20]byte, error) {
	var list [][20]byte
	if _, err := r.state.KVGet(callerIndexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Registry) updateIndex(target [20]byte, allowed bool) error {
	list, err := r.AuthorizedCallers()
	if err != nil {
		return err
	}
	next := make([][20]byte, 0, len(list)+1)
	for _, existing := range list {
		if existing != target {
			next = append(next, existing)
		}
	}
	if allowed {
		next = append(next, target)
	}
	sort.Slice(next, func(i, j int) bool { return bytes.Compare(next[i][:], next[j][:]) < 0 })
	return r.state.KVPut(callerIndexKey, next)
}
