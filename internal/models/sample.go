package models

import (
	"errors"
	"math"
	"time"
)

// MetricSample is a single metric measurement submitted for threshold
// evaluation.
type MetricSample struct {
	// Unique identifier for the sample
	ID string `json:"id"`

	// Tenant identifier for multi-tenant support
	TenantID string `json:"tenant_id"`

	// Metric name the sample belongs to, e.g. "cpu_load"
	Metric string `json:"metric"`

	// Measured value
	Value float64 `json:"value"`

	// Timestamp when the sample was taken
	Timestamp time.Time `json:"timestamp"`

	// Optional labels (host, device, ...)
	Labels map[string]string `json:"labels,omitempty"`
}

// Validation errors
var (
	ErrEmptyID          = errors.New("sample ID cannot be empty")
	ErrEmptyTenantID    = errors.New("tenant ID cannot be empty")
	ErrEmptyMetric      = errors.New("metric name cannot be empty")
	ErrValueNotFinite   = errors.New("sample value must be a finite number")
	ErrZeroTimestamp    = errors.New("timestamp cannot be zero")
	ErrFutureTimestamp  = errors.New("timestamp cannot be in the future")
	ErrInvalidTimestamp = errors.New("invalid timestamp format")
	ErrTooManyLabels    = errors.New("too many labels")
)

const MaxLabels = 50

// Validate checks if the MetricSample has all required fields and
// valid values.
func (s *MetricSample) Validate() error {
	if s.ID == "" {
		return ErrEmptyID
	}

	if s.TenantID == "" {
		return ErrEmptyTenantID
	}

	if s.Metric == "" {
		return ErrEmptyMetric
	}

	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return ErrValueNotFinite
	}

	if s.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}

	if s.Timestamp.After(time.Now().Add(time.Minute)) {
		return ErrFutureTimestamp
	}

	if len(s.Labels) > MaxLabels {
		return ErrTooManyLabels
	}

	return nil
}
