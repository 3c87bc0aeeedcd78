// Package metrics provides Prometheus metrics for profile population and
// validation runs.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline labels.
const (
	PipelinePopulate = "populate"
	PipelineValidate = "validate"
)

// Run outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds every profile collector. All record methods are nil-safe so
// components can run without metrics in tests.
type Metrics struct {
	DocumentsSkippedTotal   *prometheus.CounterVec   // Documents dropped during normalization, by reason
	RunsTotal               *prometheus.CounterVec   // Per-person runs by pipeline and outcome
	RunDurationSeconds      *prometheus.HistogramVec // Per-person run latency by pipeline
	BatchSize               *prometheus.GaugeVec     // Candidates picked in the last batch
	FieldResolutionsTotal   *prometheus.CounterVec   // Builder outcomes by field
	TransformFailuresTotal  *prometheus.CounterVec   // Transformer errors by field
	AttributeChecksTotal    *prometheus.CounterVec   // Validator outcomes by attribute
	EventsPublishedTotal    *prometheus.CounterVec   // Profile events by type and outcome
	IdentitySyncFailedTotal prometheus.Counter       // Identity directory updates that failed
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsSkippedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_documents_skipped_total",
			Help: "Documents skipped during normalization by reason",
		}, []string{"reason"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_runs_total",
			Help: "Per-person profile runs by pipeline and outcome",
		}, []string{"pipeline", "outcome"}),

		RunDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beneficiary_profile_run_duration_seconds",
			Help:    "Duration of a single person's profile run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"pipeline"}),

		BatchSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "beneficiary_profile_batch_size",
			Help: "Number of candidates selected in the most recent batch",
		}, []string{"pipeline"}),

		FieldResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_field_resolutions_total",
			Help: "Profile builder field outcomes",
		}, []string{"field", "resolved"}),

		TransformFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_transform_failures_total",
			Help: "Transformer failures by field",
		}, []string{"field"}),

		AttributeChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_attribute_checks_total",
			Help: "Profile validator outcomes by attribute",
		}, []string{"attribute", "verified"}),

		EventsPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficiary_profile_events_published_total",
			Help: "Profile events published by type and outcome",
		}, []string{"type", "outcome"}),

		IdentitySyncFailedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "beneficiary_profile_identity_sync_failed_total",
			Help: "Identity directory name updates that failed",
		}),
	}
}

func (m *Metrics) IncDocumentSkipped(reason string) {
	if m == nil {
		return
	}
	m.DocumentsSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRun(pipeline, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(pipeline, outcome).Inc()
	m.RunDurationSeconds.WithLabelValues(pipeline).Observe(durationSeconds)
}

func (m *Metrics) SetBatchSize(pipeline string, n int) {
	if m == nil {
		return
	}
	m.BatchSize.WithLabelValues(pipeline).Set(float64(n))
}

func (m *Metrics) IncFieldResolution(field string, resolved bool) {
	if m == nil {
		return
	}
	m.FieldResolutionsTotal.WithLabelValues(field, strconv.FormatBool(resolved)).Inc()
}

func (m *Metrics) IncTransformFailure(field string) {
	if m == nil {
		return
	}
	m.TransformFailuresTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) IncAttributeCheck(attribute string, verified bool) {
	if m == nil {
		return
	}
	m.AttributeChecksTotal.WithLabelValues(attribute, strconv.FormatBool(verified)).Inc()
}

func (m *Metrics) IncEventPublished(eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) IncIdentitySyncFailed() {
	if m == nil {
		return
	}
	m.IdentitySyncFailedTotal.Inc()
}
