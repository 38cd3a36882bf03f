package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"threshd/internal/metrics"
	"threshd/internal/models"
	"threshd/internal/rules"
)

// Evaluator runs a validated sample through the configured rules.
type Evaluator interface {
	EvaluateSample(sample *models.MetricSample) []rules.Result
}

// EvaluateHandler handles metric sample submission via HTTP.
type EvaluateHandler struct {
	evaluator   Evaluator
	maxBodySize int64
}

// EvaluateConfig holds configuration for the evaluate handler
type EvaluateConfig struct {
	Evaluator   Evaluator
	MaxBodySize int64
}

// NewEvaluateHandler creates a new evaluate handler
func NewEvaluateHandler(cfg EvaluateConfig) *EvaluateHandler {
	maxBodySize := cfg.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = 10 * 1024 * 1024 // 10MB default
	}

	return &EvaluateHandler{
		evaluator:   cfg.Evaluator,
		maxBodySize: maxBodySize,
	}
}

// EvaluateRequest represents the incoming JSON payload (single or batch)
type EvaluateRequest struct {
	// Single sample (if Samples is empty)
	Sample *SampleInput `json:"sample,omitempty"`

	// Batch of samples
	Samples []SampleInput `json:"samples,omitempty"`
}

// SampleInput is the input format for metric samples (with string
// timestamp for flexible parsing)
type SampleInput struct {
	ID        string            `json:"id,omitempty"`
	TenantID  string            `json:"tenant_id"`
	Metric    string            `json:"metric"`
	Value     float64           `json:"value"`
	Timestamp string            `json:"timestamp,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// RuleOutcome is the evaluation of one rule against one sample
type RuleOutcome struct {
	Rule     string `json:"rule"`
	Status   string `json:"status"`
	ExitCode int    `json:"exit_code"`
	Warning  string `json:"warning,omitempty"`
	Critical string `json:"critical,omitempty"`
}

// SampleResult describes the outcome for one submitted sample
type SampleResult struct {
	Index    int           `json:"index"`
	SampleID string        `json:"sample_id,omitempty"`
	Status   string        `json:"status"`
	Outcomes []RuleOutcome `json:"outcomes,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// EvaluateResponse is the response returned to clients
type EvaluateResponse struct {
	Success  bool           `json:"success"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Results  []SampleResult `json:"results"`
}

// ServeHTTP handles the evaluate HTTP request
func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "" {
		h.writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	samples, err := h.parseBody(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(samples) == 0 {
		h.writeError(w, http.StatusBadRequest, "no samples provided")
		return
	}

	metrics.EvaluateBatchSize.Observe(float64(len(samples)))

	response := h.processSamples(samples)

	w.Header().Set("Content-Type", "application/json")
	if response.Rejected > 0 && response.Accepted == 0 {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}

// parseBody parses the JSON body into a slice of SampleInput
func (h *EvaluateHandler) parseBody(body []byte) ([]SampleInput, error) {
	// Try parsing as EvaluateRequest first
	var req EvaluateRequest
	if err := json.Unmarshal(body, &req); err == nil {
		if len(req.Samples) > 0 {
			return req.Samples, nil
		}
		if req.Sample != nil {
			return []SampleInput{*req.Sample}, nil
		}
	}

	// Try parsing as array of samples
	var samples []SampleInput
	if err := json.Unmarshal(body, &samples); err == nil && len(samples) > 0 {
		return samples, nil
	}

	// Try parsing as single sample
	var single SampleInput
	if err := json.Unmarshal(body, &single); err == nil && single.Metric != "" {
		return []SampleInput{single}, nil
	}

	return nil, fmt.Errorf("invalid JSON format: expected sample object or array of samples")
}

// processSamples validates, normalizes, and evaluates samples
func (h *EvaluateHandler) processSamples(inputs []SampleInput) EvaluateResponse {
	response := EvaluateResponse{
		Success: true,
		Results: make([]SampleResult, 0, len(inputs)),
	}

	for i, input := range inputs {
		sample, err := h.convertInput(input)
		if err != nil {
			response.Results = append(response.Results, SampleResult{
				Index:    i,
				SampleID: input.ID,
				Status:   rules.StatusUnknown.String(),
				Error:    err.Error(),
			})
			response.Rejected++
			metrics.SamplesRejectedTotal.WithLabelValues("invalid_timestamp").Inc()
			continue
		}

		sample.Normalize()

		if err := sample.Validate(); err != nil {
			response.Results = append(response.Results, SampleResult{
				Index:    i,
				SampleID: sample.ID,
				Status:   rules.StatusUnknown.String(),
				Error:    err.Error(),
			})
			response.Rejected++
			metrics.SamplesRejectedTotal.WithLabelValues("validation").Inc()
			continue
		}

		results := h.evaluator.EvaluateSample(sample)

		response.Results = append(response.Results, SampleResult{
			Index:    i,
			SampleID: sample.ID,
			Status:   worstStatus(results).String(),
			Outcomes: outcomes(results),
		})
		response.Accepted++
	}

	response.Success = response.Rejected == 0
	return response
}

// convertInput converts SampleInput to MetricSample, filling in a
// generated ID and a current timestamp when absent
func (h *EvaluateHandler) convertInput(input SampleInput) (*models.MetricSample, error) {
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}

	ts := time.Now().UTC()
	if input.Timestamp != "" {
		parsed, err := models.ParseTimestamp(input.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		ts = parsed
	}

	return &models.MetricSample{
		ID:        id,
		TenantID:  input.TenantID,
		Metric:    input.Metric,
		Value:     input.Value,
		Timestamp: ts,
		Labels:    input.Labels,
	}, nil
}

// worstStatus returns the most severe status across rule results, or
// UNKNOWN when no rule matched
func worstStatus(results []rules.Result) rules.Status {
	if len(results) == 0 {
		return rules.StatusUnknown
	}
	worst := rules.StatusOK
	for _, res := range results {
		if res.Status > worst {
			worst = res.Status
		}
	}
	return worst
}

func outcomes(results []rules.Result) []RuleOutcome {
	out := make([]RuleOutcome, 0, len(results))
	for _, res := range results {
		out = append(out, RuleOutcome{
			Rule:     res.Rule,
			Status:   res.Status.String(),
			ExitCode: res.Status.ExitCode(),
			Warning:  res.Warning,
			Critical: res.Critical,
		})
	}
	return out
}

// writeError writes an error response
func (h *EvaluateHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
