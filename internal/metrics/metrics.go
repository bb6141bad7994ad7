package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh results.
const (
	ResultSuccess    = "success"
	ResultFetchError = "fetch_error"
	ResultEmptyList  = "empty_list"
	ResultStoreError = "storage_error"
	ResultLocked     = "locked"
)

// Lookup results.
const (
	LookupDisposable = "disposable"
	LookupAllowed    = "allowed"
	LookupError      = "error"
)

// Metrics provides observability for blocklist refreshes and lookups.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Refresh attempts by result
	RefreshTotal *prometheus.CounterVec

	// Domains written by the last successful refresh
	RefreshDomains prometheus.Gauge

	RefreshDuration prometheus.Histogram

	// Disposability decisions by result
	LookupsTotal *prometheus.CounterVec
}

// New registers all metrics on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nondisposable_refresh_total",
			Help: "Total blocklist refresh attempts by result",
		}, []string{"result"}),

		RefreshDomains: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nondisposable_refresh_domains",
			Help: "Number of domains stored by the last successful refresh",
		}),

		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nondisposable_refresh_duration_seconds",
			Help:    "Duration of blocklist refreshes including fetch and store",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nondisposable_lookups_total",
			Help: "Total disposability lookups by result",
		}, []string{"result"}),
	}
}

// IncrementRefresh records a refresh outcome.
func (m *Metrics) IncrementRefresh(result string) {
	if m != nil {
		m.RefreshTotal.WithLabelValues(result).Inc()
	}
}

// ObserveRefresh records a successful refresh.
func (m *Metrics) ObserveRefresh(count int, d time.Duration) {
	if m != nil {
		m.RefreshDomains.Set(float64(count))
		m.RefreshDuration.Observe(d.Seconds())
	}
}

// IncrementLookup records a lookup decision.
func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.LookupsTotal.WithLabelValues(result).Inc()
	}
}
