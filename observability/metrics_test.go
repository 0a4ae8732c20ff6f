package observability

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"wity/core/events"
)

func TestEconomyMetrics(t *testing.T) {
	m := Economy()
	before := testutil.ToFloat64(m.operations.WithLabelValues("stake", "error"))
	m.ObserveOperation("stake", errors.New("boom"), time.Millisecond)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("stake", "error")); got != before+1 {
		t.Fatalf("expected error counter to advance, got %v", got)
	}
	credit := testutil.ToFloat64(m.credited.WithLabelValues("vault"))
	m.RecordCredit("vault", new(big.Int).Mul(big.NewInt(2000), big.NewInt(1e18)))
	if got := testutil.ToFloat64(m.credited.WithLabelValues("vault")); got != credit+2000 {
		t.Fatalf("expected 2000 WTY credited, got %v", got-credit)
	}
}

func TestEventMetricsCountsTransfers(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.transfers.WithLabelValues("WTY"))
	m.Emit(events.Transfer{Asset: "wty", Amount: big.NewInt(1)})
	if got := testutil.ToFloat64(m.transfers.WithLabelValues("WTY")); got != before+1 {
		t.Fatalf("expected transfer counter to advance")
	}
	if got := testutil.ToFloat64(m.emitted.WithLabelValues(events.TypeTransfer)); got < 1 {
		t.Fatalf("expected emitted counter to advance")
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := HTTP()
	before := testutil.ToFloat64(m.errors.WithLabelValues("/v1/stake", "POST", "409"))
	m.Observe("/v1/stake", "POST", 409, time.Millisecond)
	if got := testutil.ToFloat64(m.errors.WithLabelValues("/v1/stake", "POST", "409")); got != before+1 {
		t.Fatalf("expected error counter to advance")
	}
	m.RecordThrottle("/v1/stake", "rate_limit")
	if got := testutil.ToFloat64(m.throttles.WithLabelValues("/v1/stake", "rate_limit")); got < 1 {
		t.Fatalf("expected throttle counter to advance")
	}
}
