package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSearchCountsEmptyResults(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch(time.Now(), 0)
	m.ObserveSearch(time.Now(), 12)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmptySearches))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchResults, "bloodlink_search_matches"))
}

func TestSessionCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementSessionsStarted()
	m.IncrementSessionsEnded(EndDetails)
	m.IncrementSessionsEnded(EndStopped)
	m.IncrementSessionsEnded(EndStopped)
	m.IncrementPagesServed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsEnded.WithLabelValues(EndDetails)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsEnded.WithLabelValues(EndStopped)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PagesServed))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(time.Now(), 3)
		m.IncrementSessionsStarted()
		m.IncrementSessionsEnded(EndDetails)
		m.IncrementPagesServed()
	})
}
