package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementDonorsRegistered()
	m.IncrementDonationsRecorded()
	m.IncrementDonationsRecorded()
	m.IncrementDonationRejected(ReasonCooldown)
	m.AddReactivations(3)
	m.AddReactivations(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonorsRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DonationsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonationsRejected.WithLabelValues(ReasonCooldown)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DonationsRejected.WithLabelValues(ReasonLifetimeLimit)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Reactivations))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementDonorsRegistered()
		m.IncrementDonationsRecorded()
		m.IncrementDonationRejected(ReasonLifetimeLimit)
		m.AddReactivations(2)
	})
}
