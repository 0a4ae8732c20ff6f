package events

import (
	"math/big"
	"strconv"

	"wity/core/types"
)

const (
	// TypeTransfer is emitted for every token balance movement.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an owner sets a spender allowance.
	TypeApproval = "token.approval"
	// TypeFeeCharged is emitted when a transfer tax is diverted to the collector.
	TypeFeeCharged = "token.feeCharged"
	// TypeFeeExclusionUpdated is emitted when an address is (un)exempted from tax.
	TypeFeeExclusionUpdated = "token.feeExclusionUpdated"
	// TypeMarketPairUpdated is emitted when an AMM pair flag changes.
	TypeMarketPairUpdated = "token.marketPairUpdated"
)

type Transfer struct {
	Asset  string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"asset":  normalizeSymbol(e.Asset),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	// zero sender marks a mint
	if !zeroAddress(e.From) {
		attrs["from"] = formatAddress(e.From)
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Approval struct {
	Asset   string
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{
		Type: TypeApproval,
		Attributes: map[string]string{
			"asset":   normalizeSymbol(e.Asset),
			"owner":   formatAddress(e.Owner),
			"spender": formatAddress(e.Spender),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type FeeCharged struct {
	Asset     string
	From      [20]byte
	Collector [20]byte
	Kind      string
	Bps       uint64
	Amount    *big.Int
}

func (FeeCharged) EventType() string { return TypeFeeCharged }

func (e FeeCharged) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeCharged,
		Attributes: map[string]string{
			"asset":     normalizeSymbol(e.Asset),
			"from":      formatAddress(e.From),
			"collector": formatAddress(e.Collector),
			"kind":      e.Kind,
			"bps":       formatUint(e.Bps),
			"amount":    formatAmount(e.Amount),
		},
	}
}

type FeeExclusionUpdated struct {
	Asset    string
	Account  [20]byte
	Excluded bool
}

func (FeeExclusionUpdated) EventType() string { return TypeFeeExclusionUpdated }

func (e FeeExclusionUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeExclusionUpdated,
		Attributes: map[string]string{
			"asset":    normalizeSymbol(e.Asset),
			"account":  formatAddress(e.Account),
			"excluded": strconv.FormatBool(e.Excluded),
		},
	}
}

type MarketPairUpdated struct {
	Asset  string
	Pair   [20]byte
	Marked bool
}

func (MarketPairUpdated) EventType() string { return TypeMarketPairUpdated }

func (e MarketPairUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketPairUpdated,
		Attributes: map[string]string{
			"asset":  normalizeSymbol(e.Asset),
			"pair":   formatAddress(e.Pair),
			"marked": strconv.FormatBool(e.Marked),
		},
	}
}
