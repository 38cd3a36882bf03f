package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertEnvelope wraps an evaluation outcome with internal metadata
// for publishing.
type AlertEnvelope struct {
	// Unique alert identifier
	AlertID string `json:"alert_id"`

	// Sample that triggered the evaluation
	Sample *MetricSample `json:"sample"`

	// Rule that produced the outcome
	Rule string `json:"rule"`

	// New and previous plugin status ("OK", "WARNING", ...)
	Status     string `json:"status"`
	PrevStatus string `json:"prev_status,omitempty"`

	// Canonical threshold expressions the sample was checked against
	Warning  string `json:"warning,omitempty"`
	Critical string `json:"critical,omitempty"`

	// Internal processing metadata
	EvaluatedAt  time.Time `json:"evaluated_at"`
	EvalNode     string    `json:"eval_node"`
	RetryCount   int       `json:"retry_count"`
	PartitionKey string    `json:"partition_key"`
}

// NewAlertEnvelope creates an envelope for an evaluation outcome.
func NewAlertEnvelope(sample *MetricSample, rule, status, prevStatus, evalNode string) *AlertEnvelope {
	return &AlertEnvelope{
		AlertID:      uuid.New().String(),
		Sample:       sample,
		Rule:         rule,
		Status:       status,
		PrevStatus:   prevStatus,
		EvaluatedAt:  time.Now().UTC(),
		EvalNode:     evalNode,
		RetryCount:   0,
		PartitionKey: sample.TenantID, // partition by tenant for ordering
	}
}

// WithThresholds records the threshold expressions on the envelope.
func (e *AlertEnvelope) WithThresholds(warning, critical string) *AlertEnvelope {
	e.Warning = warning
	e.Critical = critical
	return e
}
