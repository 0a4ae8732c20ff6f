package observability

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics

	economyMetricsOnce sync.Once
	economyRegistry    *EconomyMetrics
)

// HTTP returns the lazily-initialised registry used to record API activity.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route, method and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route, method and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wity",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected by throttling policies.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			httpRegistry.requests,
			httpRegistry.errors,
			httpRegistry.latency,
			httpRegistry.throttles,
		)
	})
	return httpRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *httpMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" or "replay".
func (m *httpMetrics) RecordThrottle(route, reason string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(route, reason).Inc()
}

// EconomyMetrics captures the outcome of every state-mutating entrypoint.
type EconomyMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	credited   *prometheus.CounterVec
	stakes     *prometheus.CounterVec
}

// Economy returns the singleton registry for ledger operations.
func Economy() *EconomyMetrics {
	economyMetricsOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "economy",
				Name:      "operations_total",
				Help:      "Count of economy operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wity",
				Subsystem: "economy",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for economy operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			credited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "economy",
				Name:      "wallet_credited_wty_total",
				Help:      "WTY credited into staking wallets segmented by credit path.",
			}, []string{"source"}),
			stakes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wity",
				Subsystem: "economy",
				Name:      "positions_opened_total",
				Help:      "Count of stake positions opened segmented by plan.",
			}, []string{"plan"}),
		}
		prometheus.MustRegister(
			economyRegistry.operations,
			economyRegistry.latency,
			economyRegistry.credited,
			economyRegistry.stakes,
		)
	})
	return economyRegistry
}

// ObserveOperation records the result of an operation.
func (m *EconomyMetrics) ObserveOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCredit adds a credited amount (18 decimals) to the per-source total.
func (m *EconomyMetrics) RecordCredit(source string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.credited.WithLabelValues(source).Add(weiToFloat(amount))
}

// RecordStake increments the position counter for plan.
func (m *EconomyMetrics) RecordStake(plan uint64) {
	if m == nil {
		return
	}
	m.stakes.WithLabelValues(fmt.Sprintf("%d", plan)).Inc()
}

func weiToFloat(amount *big.Int) float64 {
	value, _ := new(big.Rat).SetFrac(amount, big.NewInt(1e18)).Float64()
	return value
}
