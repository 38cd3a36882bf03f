package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threshd_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Evaluation metrics
	SamplesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_samples_evaluated_total",
			Help: "Total number of samples evaluated, by resulting status",
		},
		[]string{"tenant_id", "status"}, // status: OK, WARNING, CRITICAL, UNKNOWN
	)

	SamplesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_samples_rejected_total",
			Help: "Total number of samples rejected before evaluation",
		},
		[]string{"reason"},
	)

	EvaluateBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threshd_evaluate_batch_size",
			Help:    "Number of samples per evaluate request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	ThresholdParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_threshold_parse_errors_total",
			Help: "Total number of range expressions rejected at rule load",
		},
	)

	AlertsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_alerts_published_total",
			Help: "Total number of alert envelopes queued for publishing",
		},
		[]string{"status"},
	)

	AlertsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_alerts_dropped_total",
			Help: "Total number of alert envelopes dropped because the queue was full",
		},
	)

	// Worker metrics
	WorkerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threshd_worker_queue_size",
			Help: "Current size of the alert queue",
		},
	)

	WorkerQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threshd_worker_queue_capacity",
			Help: "Capacity of the alert queue",
		},
	)

	WorkerProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_worker_processed_total",
			Help: "Total number of envelopes published by workers",
		},
	)

	WorkerFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_worker_failed_total",
			Help: "Total number of envelopes failed in workers",
		},
	)

	WorkerBatchPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threshd_worker_batch_publish_duration_seconds",
			Help:    "Time taken to publish a batch to Kafka",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Kafka metrics
	KafkaPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_kafka_publish_total",
			Help: "Total number of messages published to Kafka",
		},
		[]string{"status"}, // status: success, failed
	)

	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threshd_kafka_publish_duration_seconds",
			Help:    "Time taken to publish to Kafka",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	KafkaPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_kafka_publish_retries_total",
			Help: "Total number of Kafka publish retries",
		},
	)

	KafkaBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshd_kafka_bytes_written_total",
			Help: "Total bytes written to Kafka",
		},
	)

	KafkaSamplesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_kafka_samples_consumed_total",
			Help: "Total number of samples consumed from Kafka",
		},
		[]string{"status"}, // status: evaluated, rejected
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshd_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
