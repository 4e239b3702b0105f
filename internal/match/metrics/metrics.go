package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a search session ends, used as the "reason" label.
const (
	EndDetails = "details"
	EndStopped = "stopped"
)

// Metrics provides observability for donor matching. Nil-safe.
type Metrics struct {
	SearchDuration  prometheus.Histogram
	SearchResults   prometheus.Histogram
	EmptySearches   prometheus.Counter
	SessionsStarted prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	PagesServed     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_search_duration_ms",
			Help:    "Latency of donor searches in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_search_matches",
			Help:    "Number of matching donors per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
		}),
		EmptySearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_search_empty_total",
			Help: "Searches that found no donors of the requested group",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_search_sessions_started_total",
			Help: "Search sessions opened",
		}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_search_sessions_ended_total",
			Help: "Search sessions closed by the caller, by reason",
		}, []string{"reason"}),
		PagesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_search_pages_served_total",
			Help: "Result pages served across all sessions",
		}),
	}
}

func (m *Metrics) ObserveSearch(start time.Time, matches int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	m.SearchResults.Observe(float64(matches))
	if matches == 0 {
		m.EmptySearches.Inc()
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) IncrementSessionsEnded(reason string) {
	if m != nil {
		m.SessionsEnded.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementPagesServed() {
	if m != nil {
		m.PagesServed.Inc()
	}
}
