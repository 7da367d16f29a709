package productcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes recorded by the read path.
// Hits are recorded under the name of the Source that answered.
const (
	outcomeNegative   = "negative"
	outcomeRetryLater = "retry_later"
	outcomeError      = "error"
)

// Metrics holds the Prometheus counters of the read path. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Lookups           *prometheus.CounterVec
	LockAttempts      *prometheus.CounterVec
	RepositoryQueries prometheus.Counter
	Invalidations     *prometheus.CounterVec
	Events            *prometheus.CounterVec
}

// NewMetrics creates the counters under namespace and registers them on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "product_cache",
				Name:      "lookups_total",
				Help:      "Product detail lookups by outcome",
			},
			[]string{"outcome"},
		),
		LockAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "product_cache",
				Name:      "lock_attempts_total",
				Help:      "Rebuild lock attempts by result",
			},
			[]string{"result"},
		),
		RepositoryQueries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "product_cache",
				Name:      "repository_queries_total",
				Help:      "Product detail queries sent to the database",
			},
		),
		Invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "product_cache",
				Name:      "invalidations_total",
				Help:      "Product invalidations by result",
			},
			[]string{"result"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "product_cache",
				Name:      "update_events_total",
				Help:      "Product update events received by result",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Lookups, m.LockAttempts, m.RepositoryQueries, m.Invalidations, m.Events} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) lookup(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) lockAttempt(result string) {
	if m != nil {
		m.LockAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) repositoryQuery() {
	if m != nil {
		m.RepositoryQueries.Inc()
	}
}

func (m *Metrics) invalidation(result string) {
	if m != nil {
		m.Invalidations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) event(result string) {
	if m != nil {
		m.Events.WithLabelValues(result).Inc()
	}
}
