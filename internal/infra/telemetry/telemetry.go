package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the domain-level counters that complement the HTTP
// middleware collectors on /metrics.
type Metrics struct {
	EventsPublished *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
}

// NewMetrics constructs the domain counters and registers them with the
// provided registerer. A nil registerer falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Total number of domain events handed to the Kafka producer partitioned by event type.",
	}, []string{"event_type"})

	registered, err := registerCounterVec(reg, published)
	if err != nil {
		return nil, fmt.Errorf("register published collector: %w", err)
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Total number of events the Kafka producer failed to deliver partitioned by topic.",
	}, []string{"topic"})

	failuresRegistered, err := registerCounterVec(reg, failures)
	if err != nil {
		return nil, fmt.Errorf("register failures collector: %w", err)
	}

	return &Metrics{
		EventsPublished: registered,
		PublishFailures: failuresRegistered,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}

		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}

		return existing, nil
	}

	return vec, nil
}

// EventPublished records a domain event accepted by the producer. Safe to
// call on a nil receiver so publishers can run without metrics wired.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil || m.EventsPublished == nil {
		return
	}

	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// PublishFailed records a delivery failure reported by the producer.
func (m *Metrics) PublishFailed(topic string) {
	if m == nil || m.PublishFailures == nil {
		return
	}

	m.PublishFailures.WithLabelValues(topic).Inc()
}
