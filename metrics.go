package scoped

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scope activity. A nil *Metrics records nothing.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	constructions *prometheus.CounterVec
	steps         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoped",
			Name:      "resolutions_total",
			Help:      "Total number of service resolutions.",
		}, []string{"service", "lifetime"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoped",
			Name:      "constructions_total",
			Help:      "Total number of service instances constructed.",
		}, []string{"service"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoped",
			Name:      "steps_total",
			Help:      "Total number of sequence steps completed, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Collectors returns the underlying collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.resolutions, m.constructions, m.steps}
}

func (m *Metrics) resolution(service string, lifetime Lifetime) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(service, lifetime.String()).Inc()
}

func (m *Metrics) construction(service string) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(service).Inc()
}

func (m *Metrics) step(result string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(result).Inc()
}
