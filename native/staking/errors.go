package staking

import "errors"

var (
	// ErrCallerNotAuthorized is returned when a credit or migration mark is
	// attempted by an address the auth registry does not recognise.
	ErrCallerNotAuthorized       = errors.New("staking: caller not authorized")
	ErrInsufficientWalletBalance = errors.New("staking: insufficient staking wallet balance")
	ErrAlreadyMigrated           = errors.New("staking: account already migrated")
	ErrIndexOutOfRange           = errors.New("staking: position index out of range")
	ErrPlanNotFound              = errors.New("staking: plan not found")
	ErrInvalidAmount             = errors.New("staking: amount must be positive")
	ErrInvalidAccount            = errors.New("staking: account must not be the zero address")
	ErrInvalidPlan               = errors.New("staking: invalid plan")
	ErrNilFeed                   = errors.New("staking: price feed required")
)
