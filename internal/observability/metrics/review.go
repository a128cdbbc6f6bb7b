package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// ReviewMetrics implements ports.ReviewObserver.
type ReviewMetrics struct {
	service string

	documentsTotal    *prometheus.CounterVec
	issuesTotal       *prometheus.CounterVec
	augmentationTotal *prometheus.CounterVec
}

func NewReviewMetrics(registerer prometheus.Registerer, service string) *ReviewMetrics {
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "documents_total",
			Help:      "Reviewed documents by detected type and status.",
		},
		[]string{"service", "type", "status"},
	)
	issuesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "issues_total",
			Help:      "Reported issues by severity and whether they carry citations.",
		},
		[]string{"service", "severity", "citations"},
	)
	augmentationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "model_augmentation_total",
			Help:      "Model augmentation attempts by provider and status.",
		},
		[]string{"service", "provider", "status"},
	)

	registerer.MustRegister(documentsTotal, issuesTotal, augmentationTotal)

	return &ReviewMetrics{
		service:           service,
		documentsTotal:    documentsTotal,
		issuesTotal:       issuesTotal,
		augmentationTotal: augmentationTotal,
	}
}

func (m *ReviewMetrics) ObserveDocument(docType domain.DocumentType, issues []domain.Issue, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	m.documentsTotal.WithLabelValues(m.service, string(docType), status).Inc()

	for _, issue := range issues {
		m.issuesTotal.WithLabelValues(m.service, string(issue.Severity), citationLabel(issue)).Inc()
	}
}

func (m *ReviewMetrics) ObserveAugmentation(provider, status string) {
	if provider == "" {
		provider = "unknown"
	}
	m.augmentationTotal.WithLabelValues(m.service, provider, status).Inc()
}

func citationLabel(issue domain.Issue) string {
	if len(issue.Citations) > 0 {
		return "cited"
	}
	return "uncited"
}

func newBreakerGauge(registerer prometheus.Registerer, service string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "breaker_state",
			Help:        "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"operation"},
	)
	registerer.MustRegister(gauge)
	return gauge
}

func setBreakerState(gauge *prometheus.GaugeVec, operation, state string) {
	var value float64
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	gauge.WithLabelValues(operation).Set(value)
}
