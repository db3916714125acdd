package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "profile_map"

// Metrics holds the Prometheus counters, histograms, and gauges for map renders.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	MarkersRendered *prometheus.CounterVec // labels: color={blue,grey}
	RecordsSkipped  *prometheus.CounterVec // labels: reason={invalid_record,missing_coordinates,invalid_datum}
	Renders         *prometheus.CounterVec // labels: status={written,input_missing,load_failed,no_profiles,failed}

	RenderDuration  prometheus.Histogram
	LastSuccess     prometheus.Gauge
	MarkersOnLatest prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeEnabled     prometheus.Gauge

	NotificationsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates all render metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total profile records read from the input file.",
		}),
		MarkersRendered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_rendered_total",
			Help:      "Markers drawn on written maps by recency color.",
		}, []string{"color"}),
		RecordsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records that produced no marker, by reason.",
		}, []string{"reason"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render passes by outcome.",
		}, []string{"status"}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete load-build-write render pass.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last map written.",
		}),
		MarkersOnLatest: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers_on_latest_map",
			Help:      "Number of markers on the most recently written map.",
		}),
		GeocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Reverse geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeEnabled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when tooltip geocoding is enabled, 0 otherwise.",
		}),
		NotificationsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Render summaries published to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// WriteTextfile dumps everything g gathers to path in the text exposition
// format, for pickup by the node_exporter textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
