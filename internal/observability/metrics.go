package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "location_search"

// Metrics holds the Prometheus counters, histograms, and gauges for search,
// resolution, and location publishing.
type Metrics struct {
	// Upstream lookup metrics.
	AutocompleteRequests *prometheus.CounterVec   // labels: outcome={success,empty,error}
	ResolveRequests      *prometheus.CounterVec   // labels: method={details,reverse}, outcome={success,empty,error}
	UpstreamDuration     *prometheus.HistogramVec // labels: endpoint={autocomplete,details,geocode}

	// Query cache metrics.
	QueryCache        *prometheus.CounterVec // labels: result={hit,miss}
	QueryCacheEntries prometheus.Gauge

	// Location publishing metrics.
	LocationsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	PublisherRunning   prometheus.Gauge
	PublishBatchSize   prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AutocompleteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autocomplete_requests_total",
			Help:      "Place autocomplete requests by outcome.",
		}, []string{"outcome"}),
		ResolveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_requests_total",
			Help:      "Place resolution requests by method and outcome.",
		}, []string{"method", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Google Maps API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
		QueryCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "query_cache_entries",
			Help:      "Number of query strings currently cached.",
		}),
		LocationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locations_published_total",
			Help:      "Total resolved locations written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed batch writes to the sink topic.",
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_running",
			Help:      "1 when the location publisher is active, 0 when shut down.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Number of locations per batch written to the sink topic.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
	}

	prometheus.MustRegister(
		m.AutocompleteRequests,
		m.ResolveRequests,
		m.UpstreamDuration,
		m.QueryCache,
		m.QueryCacheEntries,
		m.LocationsPublished,
		m.PublishErrors,
		m.PublisherRunning,
		m.PublishBatchSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AutocompleteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "autocomplete_requests_total"}, []string{"outcome"}),
		ResolveRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "resolve_requests_total"}, []string{"method", "outcome"}),
		UpstreamDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "upstream_duration_seconds"}, []string{"endpoint"}),
		QueryCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "query_cache_total"}, []string{"result"}),
		QueryCacheEntries:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "query_cache_entries"}),
		LocationsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "locations_published_total"}),
		PublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		PublisherRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "publisher_running"}),
		PublishBatchSize:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "publish_batch_size"}),
	}
}
