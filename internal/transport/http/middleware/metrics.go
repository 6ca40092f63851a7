package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultMetricsNamespace = "accounts"
	defaultMetricsSubsystem = "http"
)

var requestLabels = []string{"method", "route", "status"}

// HTTPMetricsOptions tunes collector registration. Zero values select the
// accounts/http namespace, prometheus.DefaultRegisterer, and the default
// latency buckets.
type HTTPMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// HTTPMetrics instruments request volume, latency, and concurrency.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics builds and registers the request collectors. Registration
// tolerates collectors already present so repeated wiring in tests reuses
// the existing series.
func NewHTTPMetrics(opts HTTPMetricsOptions) (*HTTPMetrics, error) {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	opts.Namespace = fallback(opts.Namespace, defaultMetricsNamespace)
	opts.Subsystem = fallback(opts.Subsystem, defaultMetricsSubsystem)
	if len(opts.Buckets) == 0 {
		opts.Buckets = prometheus.DefBuckets
	}

	requests, err := registerRequestCounter(reg, opts)
	if err != nil {
		return nil, err
	}

	duration, err := registerDurationHistogram(reg, opts)
	if err != nil {
		return nil, err
	}

	inFlight, err := registerInFlightGauge(reg, opts)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{Requests: requests, Duration: duration, InFlight: inFlight}, nil
}

// Handler records one observation per request. A nil receiver degrades to a
// pass-through so routes can be assembled without metrics.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		if m.InFlight != nil {
			m.InFlight.Inc()
			defer m.InFlight.Dec()
		}

		c.Next()

		method := c.Request.Method
		route := c.FullPath()
		if route == "" {
			// Unmatched paths (404s) have no template; fall back to the raw path.
			route = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		if m.Requests != nil {
			m.Requests.WithLabelValues(method, route, status).Inc()
		}
		if m.Duration != nil {
			m.Duration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		}
	}
}

func registerRequestCounter(reg prometheus.Registerer, opts HTTPMetricsOptions) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "requests_total",
		Help:      "HTTP requests by method, route, and status code.",
	}, requestLabels)

	if err := reg.Register(counter); err != nil {
		already := prometheus.AlreadyRegisteredError{}
		if !asAlreadyRegistered(err, &already) {
			return nil, fmt.Errorf("register request counter: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("request counter registered with conflicting type %T", already.ExistingCollector)
		}
		counter = existing
	}

	return counter, nil
}

func registerDurationHistogram(reg prometheus.Registerer, opts HTTPMetricsOptions) (*prometheus.HistogramVec, error) {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds by method, route, and status code.",
		Buckets:   opts.Buckets,
	}, requestLabels)

	if err := reg.Register(histogram); err != nil {
		already := prometheus.AlreadyRegisteredError{}
		if !asAlreadyRegistered(err, &already) {
			return nil, fmt.Errorf("register duration histogram: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("duration histogram registered with conflicting type %T", already.ExistingCollector)
		}
		histogram = existing
	}

	return histogram, nil
}

func registerInFlightGauge(reg prometheus.Registerer, opts HTTPMetricsOptions) (prometheus.Gauge, error) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "in_flight_requests",
		Help:      "HTTP requests currently being served.",
	})

	if err := reg.Register(gauge); err != nil {
		already := prometheus.AlreadyRegisteredError{}
		if !asAlreadyRegistered(err, &already) {
			return nil, fmt.Errorf("register in-flight gauge: %w", err)
		}
		existing, ok := already.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, fmt.Errorf("in-flight gauge registered with conflicting type %T", already.ExistingCollector)
		}
		gauge = existing
	}

	return gauge, nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	already, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return false
	}
	*target = already
	return true
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
