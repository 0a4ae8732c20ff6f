package migration

import (
	"errors"

	"wity/native/staking"
)

var (
	// ErrNothingToMigrate is returned when the legacy system reports neither
	// principal nor reward for the account.
	ErrNothingToMigrate = errors.New("migration: no active stake or rewards found")
	// ErrAlreadyMigrated mirrors the ledger's one-way migrated flag.
	ErrAlreadyMigrated = staking.ErrAlreadyMigrated
	ErrSourceRequired  = errors.New("migration: legacy source required")
	ErrLegacyRead      = errors.New("migration: legacy stake read failed")
)
