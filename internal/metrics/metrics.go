// Package metrics provides Prometheus metrics for the roadmap service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation outcomes used as label values
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeRemoteCall = "remote_call_error"
	OutcomeParse      = "parse_error"
	OutcomeBuild      = "build_error"
	OutcomeStorage    = "storage_error"
	OutcomeCancelled  = "cancelled"
)

var (
	// generationsTotal counts finished generation attempts by outcome.
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daywise_generations_total",
			Help: "Total number of roadmap generation attempts",
		},
		[]string{"outcome"},
	)

	// generationDuration covers validation through persistence.
	// Model calls routinely take tens of seconds.
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daywise_generation_duration_seconds",
			Help:    "Duration of roadmap generation attempts in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daywise_llm_requests_total",
			Help: "Total number of language model requests",
		},
		[]string{"model", "status"},
	)

	llmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daywise_llm_request_duration_seconds",
			Help:    "Duration of language model requests in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	llmInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daywise_llm_requests_in_flight",
			Help: "Number of language model requests currently holding a concurrency slot",
		},
	)

	topicStatusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daywise_topic_status_updates_total",
			Help: "Total number of applied topic status updates",
		},
		[]string{"status"},
	)

	roadmapsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daywise_roadmaps_deleted_total",
			Help: "Total number of deleted roadmaps",
		},
	)

	staleGenerationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daywise_stale_generations_total",
			Help: "Total number of generation attempts reset by the watchdog",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daywise_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		generationsTotal,
		generationDuration,
		llmRequestsTotal,
		llmRequestDuration,
		llmInFlight,
		topicStatusUpdatesTotal,
		roadmapsDeletedTotal,
		staleGenerationsTotal,
		httpRequestDuration,
	)
}

// RecordGeneration records one finished generation attempt
func RecordGeneration(outcome string, durationSeconds float64) {
	generationsTotal.WithLabelValues(outcome).Inc()
	generationDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordLLMRequest records one model call. status is "ok" or "error".
func RecordLLMRequest(model, status string, durationSeconds float64) {
	llmRequestsTotal.WithLabelValues(model, status).Inc()
	llmRequestDuration.WithLabelValues(model).Observe(durationSeconds)
}

// LLMSlotAcquired and LLMSlotReleased track concurrency slot usage
func LLMSlotAcquired() { llmInFlight.Inc() }
func LLMSlotReleased() { llmInFlight.Dec() }

// RecordTopicStatusUpdate records an applied status change
func RecordTopicStatusUpdate(status string) {
	topicStatusUpdatesTotal.WithLabelValues(status).Inc()
}

// RecordRoadmapDeleted records a successful delete
func RecordRoadmapDeleted() {
	roadmapsDeletedTotal.Inc()
}

// RecordStaleGeneration records a watchdog reset
func RecordStaleGeneration() {
	staleGenerationsTotal.Inc()
}

// RecordHTTPRequest records one served HTTP request
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
}
