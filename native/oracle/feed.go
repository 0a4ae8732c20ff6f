package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrPriceUnavailable is returned when a feed has no usable quote.
	ErrPriceUnavailable = errors.New("oracle: price unavailable")
	ErrInvalidPrice     = errors.New("oracle: price must be positive")
)

var (
	wad      = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	centsWad = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
)

// PriceFeed reports the market price of one WTY in USD with 18 decimals.
type PriceFeed interface {
	CurrentPrice(ctx context.Context) (*big.Int, error)
}

// ManualFeed is an operator-controlled price, used on development networks in
// place of a live router.
type ManualFeed struct {
	mu    sync.RWMutex
	price *big.Int
}

// NewManualFeed creates a feed quoting priceCents (e.g. 5 for $0.05).
func NewManualFeed(priceCents uint64) *ManualFeed {
	f := &ManualFeed{}
	if priceCents > 0 {
		_ = f.SetPriceCents(priceCents)
	}
	return f
}

// SetPriceCents sets the quote in whole cents. 10000 is $100.
func (f *ManualFeed) SetPriceCents(cents uint64) error {
	if cents == 0 {
		return ErrInvalidPrice
	}
	return f.SetPrice(new(big.Int).Mul(new(big.Int).SetUint64(cents), centsWad))
}

// SetPrice sets the quote with 18 decimals.
func (f *ManualFeed) SetPrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	f.mu.Lock()
	f.price = new(big.Int).Set(price)
	f.mu.Unlock()
	return nil
}

// CurrentPrice implements PriceFeed.
func (f *ManualFeed) CurrentPrice(context.Context) (*big.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.price == nil {
		return nil, ErrPriceUnavailable
	}
	return new(big.Int).Set(f.price), nil
}
