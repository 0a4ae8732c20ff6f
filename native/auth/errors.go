package auth

import "errors"

var (
	// ErrUnauthorized is returned when a non-owner attempts an administrative
	// action.
	ErrUnauthorized    = errors.New("auth: caller is not the owner")
	ErrZeroAddress     = errors.New("auth: zero address")
	ErrOwnerAlreadySet = errors.New("auth: owner already initialised")
	ErrOwnerNotSet     = errors.New("auth: owner not initialised")
)
