package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RouterABI is the subset of a Uniswap V2 style router used for quoting.
const RouterABI = `[{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the read-only slice of an EVM client. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialRouterClient connects to the EVM endpoint hosting the router.
func DialRouterClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("oracle: evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// RouterFeed quotes one WTY against the quote asset through an AMM router.
type RouterFeed struct {
	client        ContractCaller
	router        common.Address
	base          common.Address
	quote         common.Address
	quoteDecimals uint8
	abi           abi.ABI
}

// NewRouterFeed builds a router-backed feed. quoteDecimals is the precision of
// the quote asset; results are normalised to 18 decimals.
func NewRouterFeed(client ContractCaller, router, base, quote common.Address, quoteDecimals uint8) (*RouterFeed, error) {
	if client == nil {
		return nil, fmt.Errorf("oracle: contract caller required")
	}
	if router == (common.Address{}) || base == (common.Address{}) || quote == (common.Address{}) {
		return nil, fmt.Errorf("oracle: router, base and quote addresses required")
	}
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse router abi: %w", err)
	}
	return &RouterFeed{
		client:        client,
		router:        router,
		base:          base,
		quote:         quote,
		quoteDecimals: quoteDecimals,
		abi:           parsed,
	}, nil
}

// CurrentPrice implements PriceFeed.
func (f *RouterFeed) CurrentPrice(ctx context.Context) (*big.Int, error) {
	input, err := f.abi.Pack("getAmountsOut", new(big.Int).Set(wad), []common.Address{f.base, f.quote})
	if err != nil {
		return nil, fmt.Errorf("oracle: pack getAmountsOut: %w", err)
	}
	router := f.router
	output, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &router, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: call router: %w", err)
	}
	values, err := f.abi.Unpack("getAmountsOut", output)
	if err != nil {
		return nil, fmt.Errorf("oracle: unpack getAmountsOut: %w", err)
	}
	if len(values) != 1 {
		return nil, ErrPriceUnavailable
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok || len(amounts) < 2 || amounts[len(amounts)-1] == nil || amounts[len(amounts)-1].Sign() <= 0 {
		return nil, ErrPriceUnavailable
	}
	return scaleTo18(amounts[len(amounts)-1], f.quoteDecimals), nil
}

func scaleTo18(amount *big.Int, decimals uint8) *big.Int {
	switch {
	case decimals == 18:
		return new(big.Int).Set(amount)
	case decimals < 18:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		return new(big.Int).Mul(amount, factor)
	default:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil)
		return new(big.Int).Quo(amount, factor)
	}
}
