package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spin_requests_total",
			Help: "Total spin requests by result and outcome kind",
		},
		[]string{"result", "outcome"},
	)

	spinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spin_request_duration_ms",
			Help:    "Spin request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "outcome"},
	)

	bigWinTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "big_win_total",
			Help: "Total big win rounds",
		},
	)

	payoutCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spin_payout_cents_total",
			Help: "Total payout in cents by outcome kind",
		},
		[]string{"outcome"},
	)
)

// RecordSpin records business metrics for a spin call.
// result should be "success" or "fail"; outcome is normalized to lower-case
// (triple/double/none, empty for failed spins).
func RecordSpin(result, outcome string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	oc := strings.ToLower(outcome)
	spinTotal.WithLabelValues(res, oc).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	spinDuration.WithLabelValues(res, oc).Observe(durMs)
}

// RecordPayout accumulates paid-out cents per outcome kind.
func RecordPayout(outcome string, payout int64) {
	if payout <= 0 {
		return
	}
	payoutCents.WithLabelValues(strings.ToLower(outcome)).Add(float64(payout))
}

// RecordBigWin counts a round whose payout crossed the big-win threshold.
func RecordBigWin() {
	bigWinTotal.Inc()
}
