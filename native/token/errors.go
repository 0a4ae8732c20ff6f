package token

import "errors"

var (
	ErrTokenNotFound         = errors.New("token: unknown token")
	ErrTokenExists           = errors.New("token: token already registered")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAmount         = errors.New("token: amount must be positive")
	ErrZeroAddress           = errors.New("token: zero address")
	ErrMintNotAllowed        = errors.New("token: mint restricted to owner")
	ErrInvalidFee            = errors.New("token: fee exceeds maximum")
	ErrInvalidSymbol         = errors.New("token: invalid symbol")
)

// MaxFeeBps caps any single tax.
const MaxFeeBps = uint64(2_500)
