package common

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the precision of every economy amount.
const Decimals = 18

var errAmountSyntax = errors.New("invalid amount")

// ParseAmount converts a decimal token string ("12.5") into base units with
// 18 decimals.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errAmountSyntax
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, ErrNegativeAmount
	}
	whole, frac, hasFrac := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > Decimals) {
		return nil, fmt.Errorf("%w: %q", errAmountSyntax, value)
	}
	frac += strings.Repeat("0", Decimals-len(frac))
	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errAmountSyntax, value)
	}
	if _, err := toU256(out); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatAmount renders base units as a decimal token string, trimming
// trailing zeros.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	negative := amount.Sign() < 0
	digits := new(big.Int).Abs(amount).String()
	if len(digits) <= Decimals {
		digits = strings.Repeat("0", Decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-Decimals]
	frac := strings.TrimRight(digits[len(digits)-Decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if negative {
		out = "-" + out
	}
	return out
}
