package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exchange holds the engine-level settlement counters. All methods are safe
// to call on a nil receiver so the engine can run unmetered.
type Exchange struct {
	settlements  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	nlpExchanged *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
	latency      prometheus.Histogram
}

// NewExchange builds the settlement metric set and registers it with the
// supplied registerer.
func NewExchange(reg prometheus.Registerer) *Exchange {
	m := &Exchange{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nlpx",
			Subsystem: "exchange",
			Name:      "settlements_total",
			Help:      "Completed settlements by asset symbol.",
		}, []string{"symbol"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nlpx",
			Subsystem: "exchange",
			Name:      "settlement_failures_total",
			Help:      "Rejected or rolled-back settlements by reason.",
		}, []string{"reason"}),
		nlpExchanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nlpx",
			Subsystem: "exchange",
			Name:      "nlp_exchanged_total",
			Help:      "Points destroyed through settlement by asset symbol.",
		}, []string{"symbol"}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nlpx",
			Subsystem: "exchange",
			Name:      "fee_withdrawals_total",
			Help:      "Operational fee withdrawals by asset symbol.",
		}, []string{"symbol"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nlpx",
			Subsystem: "exchange",
			Name:      "settlement_duration_seconds",
			Help:      "End-to-end settlement latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.settlements, m.failures, m.nlpExchanged, m.withdrawals, m.latency)
	}
	return m
}

// ObserveSettlement records one completed settlement.
func (m *Exchange) ObserveSettlement(symbol string, nlpAmount *big.Int) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(symbol).Inc()
	if nlpAmount != nil {
		value, _ := new(big.Float).SetInt(nlpAmount).Float64()
		m.nlpExchanged.WithLabelValues(symbol).Add(value)
	}
}

// ObserveLatency records the wall time one settlement attempt took.
func (m *Exchange) ObserveLatency(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(elapsed.Seconds())
}

// ObserveFailure records one failed settlement attempt.
func (m *Exchange) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

// ObserveWithdrawal records one operational fee withdrawal.
func (m *Exchange) ObserveWithdrawal(symbol string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(symbol).Inc()
}
