package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrAmountOverflow is returned when an amount or an intermediate product does
// not fit in 256 bits.
var ErrAmountOverflow = errors.New("amount exceeds 256 bits")

// ErrNegativeAmount is returned when a signed value reaches unsigned math.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Wad is one unit with 18 decimals.
var Wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return out, nil
}

// Add returns a+b, failing when the sum leaves the uint256 range.
func Add(a, b *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return sum.ToBig(), nil
}

// Mul returns a*b, failing when the product leaves the uint256 range.
func Mul(a, b *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return product.ToBig(), nil
}

// MulDiv returns floor(a*b/denominator). The intermediate product may use 512
// bits; only the result must fit in 256 bits.
func MulDiv(a, b, denominator *big.Int) (*big.Int, error) {
	if denominator == nil || denominator.Sign() <= 0 {
		return nil, errors.New("denominator must be positive")
	}
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	d, err := toU256(denominator)
	if err != nil {
		return nil, err
	}
	result, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return result.ToBig(), nil
}

// Bps applies a basis-point rate: floor(amount*bps/10000).
func Bps(amount *big.Int, bps uint64) (*big.Int, error) {
	return MulDiv(amount, new(big.Int).SetUint64(bps), big.NewInt(10_000))
}
