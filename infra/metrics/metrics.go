package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the gateway collectors
type Recorder struct {
	payTotal       *prometheus.CounterVec
	payDuration    *prometheus.HistogramVec
	notifyTotal    *prometheus.CounterVec
	notifyDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		payTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "pay_total",
			Help:      "Pay calls by provider and outcome (initiated or error kind).",
		}, []string{"provider", "outcome"}),
		payDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "pay_duration_seconds",
			Help:      "Duration of pay calls including every provider round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "notify_total",
			Help:      "Notify calls by provider and final state (verified or rejected).",
		}, []string{"provider", "state"}),
		notifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "notify_duration_seconds",
			Help:      "Duration of notify calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	if reg != nil {
		reg.MustRegister(r.payTotal, r.payDuration, r.notifyTotal, r.notifyDuration)
	}
	return r
}

// ObservePay records one pay call
func (r *Recorder) ObservePay(provider, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.payTotal.WithLabelValues(provider, outcome).Inc()
	r.payDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveNotify records one notify call
func (r *Recorder) ObserveNotify(provider, state string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.notifyTotal.WithLabelValues(provider, state).Inc()
	r.notifyDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// PayTotal exposes the pay counter for tests and dashboards
func (r *Recorder) PayTotal() *prometheus.CounterVec {
	return r.payTotal
}

// NotifyTotal exposes the notify counter
func (r *Recorder) NotifyTotal() *prometheus.CounterVec {
	return r.notifyTotal
}
