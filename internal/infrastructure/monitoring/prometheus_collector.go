package monitoring

import (
	"time"

	"streamgate/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	validationsTotal     *prometheus.CounterVec
	geoFallbacksTotal    prometheus.Counter
	sessionsEndedTotal   *prometheus.CounterVec
	signedURLsTotal      prometheus.Counter
	activeSessions       prometheus.Gauge
	sweepDuration        prometheus.Histogram
	validationDuration   prometheus.Histogram
	heartbeatsTotal      prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		validationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_validations_total",
			Help: "Access validation decisions by outcome and rejection reason",
		}, []string{"outcome", "reason"}),

		geoFallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_geolocation_fallbacks_total",
			Help: "Geolocation lookups that fell back to the default location",
		}),

		sessionsEndedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_sessions_ended_total",
			Help: "Sessions ended by cause",
		}, []string{"cause"}),

		signedURLsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_signed_urls_issued_total",
			Help: "Signed playback URLs issued",
		}),

		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_active_sessions",
			Help: "Number of currently live streaming sessions",
		}),

		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_sweep_duration_seconds",
			Help:    "Duration of session sweep passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),

		validationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_validation_duration_seconds",
			Help:    "Duration of full validation pipeline passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),

		heartbeatsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_heartbeats_total",
			Help: "Session heartbeats received",
		}),
	}
}

func (p *PrometheusCollector) RecordValidation(valid bool, reason domain.RejectionReason) {
	if valid {
		p.validationsTotal.WithLabelValues("granted", "").Inc()
		return
	}
	p.validationsTotal.WithLabelValues("rejected", string(reason)).Inc()
}

func (p *PrometheusCollector) RecordGeolocationFallback() {
	p.geoFallbacksTotal.Inc()
}

func (p *PrometheusCollector) RecordSessionsEnded(cause string, count int) {
	if count <= 0 {
		return
	}
	p.sessionsEndedTotal.WithLabelValues(cause).Add(float64(count))
}

func (p *PrometheusCollector) RecordSweepDuration(d time.Duration) {
	p.sweepDuration.Observe(d.Seconds())
}

func (p *PrometheusCollector) SetActiveSessions(n int) {
	p.activeSessions.Set(float64(n))
}

func (p *PrometheusCollector) RecordSignedURL() {
	p.signedURLsTotal.Inc()
}

func (p *PrometheusCollector) RecordValidationDuration(d time.Duration) {
	p.validationDuration.Observe(d.Seconds())
}

func (p *PrometheusCollector) RecordHeartbeat() {
	p.heartbeatsTotal.Inc()
}
