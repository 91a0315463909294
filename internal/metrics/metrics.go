// Package metrics exposes Prometheus instrumentation for settlement runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	metricPrefix = "binarypay_"

	ResultCompleted = "completed"
	ResultPartial   = "partial"
	ResultConflict  = "conflict"
	ResultError     = "error"

	OutcomeSettled        = "settled"
	OutcomeAlreadySettled = "already_settled"
	OutcomeFailed         = "failed"

	CategoryEligibilityBonus = "eligibility_bonus"
	CategoryBinary           = "binary"
	CategoryFlashout         = "flashout"
	CategorySponsor          = "sponsor"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	settlements *prometheus.CounterVec
	credits     *prometheus.CounterVec
	payouts     *prometheus.CounterVec
)

// Init registers the collectors with reg, or the default registerer when reg is nil.
// Only the first call has any effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_runs_total",
				Help: "Total settlement runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_run_seconds",
				Help:    "Settlement run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlements = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "participant_settlements_total",
				Help: "Total per-participant settlement units by outcome",
			},
			[]string{"outcome"},
		)
		credits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sponsor_credits_total",
				Help: "Total sponsor credit routes by outcome",
			},
			[]string{"outcome"},
		)
		payouts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payout_amount_total",
				Help: "Total amount paid out by category",
			},
			[]string{"category"},
		)

		reg.MustRegister(runsTotal, runLatency, settlements, credits, payouts)
	})
}

// ObserveRun records one run's result and duration.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = ResultCompleted
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncParticipant counts one per-participant settlement unit.
func IncParticipant(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if settlements != nil {
		settlements.WithLabelValues(outcome).Inc()
	}
}

// IncSponsorCredit counts one routed child.
func IncSponsorCredit(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if credits != nil {
		credits.WithLabelValues(outcome).Inc()
	}
}

// AddPayout adds amount to the category total. Zero and negative amounts are ignored.
func AddPayout(category string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	if payouts != nil {
		payouts.WithLabelValues(category).Add(amount.InexactFloat64())
	}
}
