package token

import (
	"fmt"
	"regexp"
	"strings"
)

// Symbols recognised by the economy.
const (
	SymbolWTY  = "WTY"
	SymbolUSDT = "USDT"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// NormalizeSymbol upper-cases and trims a token symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FeePolicy describes the transfer taxes of a token. Taxes are expressed in
// basis points and routed to Collector.
type FeePolicy struct {
	BuyBps      uint64
	SellBps     uint64
	TransferBps uint64
	Collector   [20]byte
}

// Enabled reports whether any tax is configured.
func (p FeePolicy) Enabled() bool {
	return p.BuyBps > 0 || p.SellBps > 0 || p.TransferBps > 0
}

// Validate ensures the taxes stay within MaxFeeBps and a collector exists.
func (p FeePolicy) Validate() error {
	for name, bps := range map[string]uint64{"buy": p.BuyBps, "sell": p.SellBps, "transfer": p.TransferBps} {
		if bps > MaxFeeBps {
			return fmt.Errorf("%w: %s tax %d bps", ErrInvalidFee, name, bps)
		}
	}
	if p.Enabled() && p.Collector == ([20]byte{}) {
		return fmt.Errorf("%w: collector required", ErrZeroAddress)
	}
	return nil
}

// Metadata describes a registered token.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals uint8
	// OpenMint lets anyone mint. Used for development payment assets.
	OpenMint bool
	Fees     FeePolicy
}

// Validate checks the metadata before registration.
func (m Metadata) Validate() error {
	if !symbolPattern.MatchString(NormalizeSymbol(m.Symbol)) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, m.Symbol)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("token: name required for %s", m.Symbol)
	}
	if m.Decimals > 36 {
		return fmt.Errorf("token: decimals out of range for %s", m.Symbol)
	}
	return m.Fees.Validate()
}

// Fee kinds reported on token.feeCharged events.
const (
	FeeKindBuy      = "buy"
	FeeKindSell     = "sell"
	FeeKindTransfer = "transfer"
)
