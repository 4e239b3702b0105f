package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons used as the "reason" label.
const (
	ReasonLifetimeLimit = "lifetime_limit"
	ReasonCooldown      = "cooldown"
)

// Metrics provides observability for the donor module.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	DonorsRegistered  prometheus.Counter
	DonationsRecorded prometheus.Counter
	DonationsRejected *prometheus.CounterVec
	Reactivations     prometheus.Counter
}

// New registers the donor metrics with reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonorsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_donors_registered_total",
			Help: "Total number of donors registered",
		}),
		DonationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_donations_recorded_total",
			Help: "Total number of donations recorded",
		}),
		DonationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_donations_rejected_total",
			Help: "Donations refused by eligibility rules, by reason",
		}, []string{"reason"}),
		Reactivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_donor_reactivations_total",
			Help: "Total number of donors returned to active after cooldown",
		}),
	}
}

func (m *Metrics) IncrementDonorsRegistered() {
	if m != nil {
		m.DonorsRegistered.Inc()
	}
}

func (m *Metrics) IncrementDonationsRecorded() {
	if m != nil {
		m.DonationsRecorded.Inc()
	}
}

func (m *Metrics) IncrementDonationRejected(reason string) {
	if m != nil {
		m.DonationsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) AddReactivations(n int) {
	if m != nil && n > 0 {
		m.Reactivations.Add(float64(n))
	}
}
