package staking

import (
	"context"
	"fmt"
	"math/big"

	"wity/native/common"
)

// PriceFeed reports the market price of one WTY in USD with 18 decimals.
type PriceFeed interface {
	CurrentPrice(ctx context.Context) (*big.Int, error)
}

// Valuation is a display-only USD view of an account.
type Valuation struct {
	Wallet    *big.Int
	Staked    *big.Int
	Price     *big.Int
	WalletUSD *big.Int
	StakedUSD *big.Int
}

// StakedBalance sums the amounts of the account's active positions.
func (l *Ledger) StakedBalance(account [20]byte) (*big.Int, error) {
	positions, err := l.Positions(account)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, position := range positions {
		if !position.Active {
			continue
		}
		total, err = common.Add(total, position.Amount)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Valuation prices the account at the feed's market price. The result has no
// effect on staking requirements.
func (l *Ledger) Valuation(ctx context.Context, account [20]byte, feed PriceFeed) (Valuation, error) {
	if feed == nil {
		return Valuation{}, ErrNilFeed
	}
	wallet, err := l.WalletBalance(account)
	if err != nil {
		return Valuation{}, err
	}
	staked, err := l.StakedBalance(account)
	if err != nil {
		return Valuation{}, err
	}
	return Appraise(ctx, wallet, staked, feed)
}

// Appraise prices already-read wallet and staked balances.
func Appraise(ctx context.Context, wallet, staked *big.Int, feed PriceFeed) (Valuation, error) {
	if feed == nil {
		return Valuation{}, ErrNilFeed
	}
	price, err := feed.CurrentPrice(ctx)
	if err != nil {
		return Valuation{}, fmt.Errorf("staking: price feed: %w", err)
	}
	walletUSD, err := common.MulDiv(wallet, price, common.Wad)
	if err != nil {
		return Valuation{}, err
	}
	stakedUSD, err := common.MulDiv(staked, price, common.Wad)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{
		Wallet:    wallet,
		Staked:    staked,
		Price:     new(big.Int).Set(price),
		WalletUSD: walletUSD,
		StakedUSD: stakedUSD,
	}, nil
}
