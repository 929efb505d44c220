package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload statuses
const (
	UploadOK         = "ok"
	UploadBadRequest = "bad_request"
	UploadFailed     = "failed"
)

// Processing outcomes
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics holds the function counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	uploadTotal       *prometheus.CounterVec
	uploadBytes       prometheus.Counter
	processTotal      *prometheus.CounterVec
	detectionDuration prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipts",
			Name:      "upload_total",
			Help:      "Total upload requests by status.",
		},
		[]string{"status"},
	)
	uploadBytes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "receipts",
			Name:      "upload_bytes_total",
			Help:      "Total bytes written to object storage by uploads.",
		},
	)
	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipts",
			Name:      "process_total",
			Help:      "Total storage events handled by outcome.",
		},
		[]string{"outcome"},
	)
	detectionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "receipts",
			Name:      "detection_duration_seconds",
			Help:      "Text detection call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	registry.MustRegister(uploadTotal, uploadBytes, processTotal, detectionDuration)

	return &Metrics{
		registry:          registry,
		uploadTotal:       uploadTotal,
		uploadBytes:       uploadBytes,
		processTotal:      processTotal,
		detectionDuration: detectionDuration,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpload records one upload request. A nil receiver is a no-op.
func (m *Metrics) ObserveUpload(status string, bytes int64) {
	if m == nil {
		return
	}
	m.uploadTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

// ObserveProcess records the outcome of one storage event. A nil receiver is a no-op.
func (m *Metrics) ObserveProcess(outcome string) {
	if m == nil {
		return
	}
	m.processTotal.WithLabelValues(outcome).Inc()
}

// ObserveDetection records a detection call duration. A nil receiver is a no-op.
func (m *Metrics) ObserveDetection(d time.Duration) {
	if m == nil {
		return
	}
	m.detectionDuration.Observe(d.Seconds())
}
