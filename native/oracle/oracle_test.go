package oracle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func TestManualFeedCents(t *testing.T) {
	feed := NewManualFeed(0)
	if _, err := feed.CurrentPrice(context.Background()); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
	if err := feed.SetPriceCents(10000); err != nil {
		t.Fatalf("set price: %v", err)
	}
	price, err := feed.CurrentPrice(context.Background())
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(100), wad)
	if price.Cmp(want) != 0 {
		t.Fatalf("expected $100, got %s", price)
	}
	if err := feed.SetPriceCents(0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

type routerStub struct {
	t      *testing.T
	abi    abi.ABI
	amount *big.Int
	calls  int
}

func (r *routerStub) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	r.calls++
	method, err := r.abi.MethodById(call.Data[:4])
	if err != nil {
		r.t.Fatalf("unknown selector: %v", err)
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		r.t.Fatalf("unpack inputs: %v", err)
	}
	path := args[1].([]common.Address)
	if len(path) != 2 {
		r.t.Fatalf("expected two-hop path, got %v", path)
	}
	return method.Outputs.Pack([]*big.Int{args[0].(*big.Int), r.amount})
}

func TestRouterFeedQuotes(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	// 0.15 USDT with 6 decimals
	stub := &routerStub{t: t, abi: parsed, amount: big.NewInt(150_000)}
	feed, err := NewRouterFeed(stub, common.HexToAddress("0x01"), common.HexToAddress("0x02"), common.HexToAddress("0x03"), 6)
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	price, err := feed.CurrentPrice(context.Background())
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Cmp(big.NewInt(15e16)) != 0 {
		t.Fatalf("expected 0.15e18, got %s", price)
	}
}

type countingFeed struct {
	calls int
	err   error
}

func (c *countingFeed) CurrentPrice(context.Context) (*big.Int, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return big.NewInt(int64(c.calls)), nil
}

func TestCachedFeedExpires(t *testing.T) {
	upstream := &countingFeed{}
	cache := NewCachedFeed(upstream, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	cache.SetNowFunc(func() time.Time { return now })

	first, _ := cache.CurrentPrice(context.Background())
	second, _ := cache.CurrentPrice(context.Background())
	if first.Cmp(second) != 0 || upstream.calls != 1 {
		t.Fatalf("expected cached quote, calls=%d", upstream.calls)
	}
	now = now.Add(2 * time.Minute)
	third, _ := cache.CurrentPrice(context.Background())
	if third.Int64() != 2 {
		t.Fatalf("expected refreshed quote, got %s", third)
	}
	upstream.err = errors.New("rpc down")
	now = now.Add(2 * time.Minute)
	if _, err := cache.CurrentPrice(context.Background()); err == nil {
		t.Fatalf("expected upstream error to surface")
	}
}
