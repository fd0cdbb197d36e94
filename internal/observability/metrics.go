package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shelter_routing"

// Metrics holds the Prometheus counters, histograms, and gauges for the routing service.
type Metrics struct {
	// Route calculation metrics.
	RouteRequests  *prometheus.CounterVec // labels: mode={car,motorcycle,walk}, source={osrm,fallback}
	RouteFallbacks *prometheus.CounterVec // labels: reason={timeout,unavailable,no_route}

	// Routing API metrics.
	OSRMRequests    *prometheus.CounterVec   // labels: profile={driving,foot}, outcome={success,error,no_route}
	OSRMAPIDuration *prometheus.HistogramVec // labels: profile={driving,foot}
	RouteCache      *prometheus.CounterVec   // labels: result={hit,miss}

	// Route-request pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all service metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RouteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_requests_total",
			Help:      "Routes calculated by transport mode and source.",
		}, []string{"mode", "source"}),
		RouteFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_fallbacks_total",
			Help:      "Routes synthesized locally because the routing API was unusable.",
		}, []string{"reason"}),
		OSRMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osrm_requests_total",
			Help:      "Routing API requests by profile and outcome.",
		}, []string{"profile", "outcome"}),
		OSRMAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "osrm_api_duration_seconds",
			Help:      "Routing API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"profile"}),
		RouteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_cache_total",
			Help:      "Road route cache lookups by result.",
		}, []string{"result"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total route requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total route events written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total route requests that could not be processed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the route-request pipeline is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of route requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-route-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.RouteRequests,
		m.RouteFallbacks,
		m.OSRMRequests,
		m.OSRMAPIDuration,
		m.RouteCache,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RouteRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "route_requests_total"}, []string{"mode", "source"}),
		RouteFallbacks:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "route_fallbacks_total"}, []string{"reason"}),
		OSRMRequests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "osrm_requests_total"}, []string{"profile", "outcome"}),
		OSRMAPIDuration:         prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "osrm_api_duration_seconds"}, []string{"profile"}),
		RouteCache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "route_cache_total"}, []string{"result"}),
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
	}
}
