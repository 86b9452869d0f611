package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeParseError = "parse_error"
	OutcomeExhausted  = "exhausted"
	OutcomeInternal   = "internal"
)

// Metrics provides Prometheus metrics for tomlsnap conversions.
type Metrics struct {
	config MetricsConfig

	// Conversion metrics
	conversionsStarted   prometheus.Counter
	conversionsCompleted *prometheus.CounterVec
	conversionDuration   prometheus.Histogram
	documentBytes        prometheus.Histogram

	// Arena metrics
	arenaBytesUsed  prometheus.Histogram
	arenaChunks     prometheus.Histogram
	stringsInterned prometheus.Counter

	// Error metrics
	parseErrors prometheus.Counter

	// Snapshot metrics
	openSnapshots prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// When the config is disabled, every method on the returned instance is a
// no-op.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	durBuckets := cfg.DurationBuckets
	if len(durBuckets) == 0 {
		durBuckets = prometheus.DefBuckets
	}
	sizeBuckets := cfg.SizeBuckets
	if len(sizeBuckets) == 0 {
		sizeBuckets = prometheus.ExponentialBuckets(256, 4, 8)
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		conversionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_started_total",
				Help:      "Total number of conversions started",
			},
		),
		conversionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_completed_total",
				Help:      "Total number of conversions completed, by outcome",
			},
			[]string{"outcome"},
		),
		conversionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Duration of parse-and-flatten passes",
				Buckets:   durBuckets,
			},
		),
		documentBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_bytes",
				Help:      "Size of input documents in bytes",
				Buckets:   sizeBuckets,
			},
		),
		arenaBytesUsed: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "arena_bytes_used",
				Help:      "Arena bytes handed out per conversion",
				Buckets:   sizeBuckets,
			},
		),
		arenaChunks: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "arena_chunks",
				Help:      "Arena chunks allocated per conversion",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		stringsInterned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strings_interned_total",
				Help:      "Total number of strings interned across conversions",
			},
		),
		parseErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of documents rejected with a syntax error",
			},
		),
		openSnapshots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_snapshots",
				Help:      "Number of conversion results not yet closed",
			},
		),
	}

	registry.MustRegister(
		m.conversionsStarted,
		m.conversionsCompleted,
		m.conversionDuration,
		m.documentBytes,
		m.arenaBytesUsed,
		m.arenaChunks,
		m.stringsInterned,
		m.parseErrors,
		m.openSnapshots,
	)

	return m, nil
}

// ConversionStarted records the start of one conversion pass.
func (m *Metrics) ConversionStarted(inputBytes int) {
	if m == nil || m.conversionsStarted == nil {
		return
	}
	m.conversionsStarted.Inc()
	m.documentBytes.Observe(float64(inputBytes))
	m.openSnapshots.Inc()
}

// ConversionCompleted records the outcome of one conversion pass.
func (m *Metrics) ConversionCompleted(outcome string, duration time.Duration, arenaUsed int64, arenaChunks, strings int) {
	if m == nil || m.conversionsCompleted == nil {
		return
	}
	m.conversionsCompleted.WithLabelValues(outcome).Inc()
	m.conversionDuration.Observe(duration.Seconds())
	m.arenaBytesUsed.Observe(float64(arenaUsed))
	m.arenaChunks.Observe(float64(arenaChunks))
	m.stringsInterned.Add(float64(strings))
	if outcome == OutcomeParseError {
		m.parseErrors.Inc()
	}
}

// SnapshotClosed records the teardown of one conversion result.
func (m *Metrics) SnapshotClosed() {
	if m == nil || m.openSnapshots == nil {
		return
	}
	m.openSnapshots.Dec()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
