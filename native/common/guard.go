package common

import (
	"errors"
	"fmt"
	"strings"

	"wity/core/state"
)

var ErrModulePaused = errors.New("module paused")

// ErrUnknownModule is returned when pausing a module that has no guard.
var ErrUnknownModule = errors.New("unknown module")

// Module names recognised by the pause guard.
const (
	ModuleStaking   = "staking"
	ModuleMigration = "migration"
	ModuleVault     = "vault"
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// KnownModule reports whether module can be paused.
func KnownModule(module string) bool {
	switch NormalizeModule(module) {
	case ModuleStaking, ModuleMigration, ModuleVault:
		return true
	default:
		return false
	}
}

// NormalizeModule lower-cases and trims a module name.
func NormalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}

var pausePrefix = "params/paused/"

// Pauses persists per-module pause flags in state. Callers are responsible
// for gating SetPaused behind the owner check.
type Pauses struct {
	store state.Store
}

// NewPauses binds the pause table to store.
func NewPauses(store state.Store) *Pauses {
	return &Pauses{store: store}
}

// IsPaused implements PauseView. Read failures are treated as paused.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil || p.store == nil {
		return false
	}
	var paused bool
	ok, err := p.store.KVGet([]byte(pausePrefix+NormalizeModule(module)), &paused)
	if err != nil {
		return true
	}
	return ok && paused
}

// SetPaused stores the pause flag for module.
func (p *Pauses) SetPaused(module string, paused bool) error {
	normalized := NormalizeModule(module)
	if !KnownModule(normalized) {
		return fmt.Errorf("%w %q", ErrUnknownModule, normalized)
	}
	return p.store.KVPut([]byte(pausePrefix+normalized), paused)
}
