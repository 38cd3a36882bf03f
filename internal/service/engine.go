package service

import (
	"threshd/internal/logger"
	"threshd/internal/metrics"
	"threshd/internal/models"
	"threshd/internal/rules"
	"threshd/internal/state"
	"threshd/internal/storage"
)

// Engine runs samples through the ruleset, tracks status transitions
// per tenant, and fans out alert envelopes. It is shared by the HTTP
// handler and the Kafka consumer.
type Engine struct {
	ruleset *rules.Ruleset
	states  state.Store
	history storage.Store
	out     chan<- *models.AlertEnvelope
	nodeID  string
}

// NewEngine builds an evaluation engine. The out channel receives
// alert envelopes for publishing; sends never block, envelopes are
// dropped (and counted) when the queue is full.
func NewEngine(ruleset *rules.Ruleset, states state.Store, history storage.Store, out chan<- *models.AlertEnvelope, nodeID string) *Engine {
	return &Engine{
		ruleset: ruleset,
		states:  states,
		history: history,
		out:     out,
		nodeID:  nodeID,
	}
}

// EvaluateSample checks a validated sample against every rule for its
// metric. The result slice is empty when no rule covers the metric.
//
// An envelope is emitted for every non-OK outcome and for every
// status transition, including recovery back to OK. Steady-state OK
// is only counted.
func (e *Engine) EvaluateSample(sample *models.MetricSample) []rules.Result {
	results := e.ruleset.Evaluate(sample.Metric, sample.Value)
	if len(results) == 0 {
		metrics.SamplesEvaluatedTotal.WithLabelValues(sample.TenantID, rules.StatusUnknown.String()).Inc()
		return nil
	}

	log := logger.WithComponent("engine")

	for _, res := range results {
		metrics.SamplesEvaluatedTotal.WithLabelValues(sample.TenantID, res.Status.String()).Inc()

		prev, known := e.states.LastStatus(sample.TenantID, res.Rule)
		e.states.SetStatus(sample.TenantID, res.Rule, res.Status)

		transition := known && prev != res.Status
		if res.Status == rules.StatusOK && !transition {
			continue
		}

		prevStatus := ""
		if known {
			prevStatus = prev.String()
		}

		envelope := models.NewAlertEnvelope(sample, res.Rule, res.Status.String(), prevStatus, e.nodeID).
			WithThresholds(res.Warning, res.Critical)
		e.history.Add(envelope)

		select {
		case e.out <- envelope:
			metrics.AlertsPublishedTotal.WithLabelValues(envelope.Status).Inc()
		default:
			metrics.AlertsDroppedTotal.Inc()
			log.Warn().
				Str("alert_id", envelope.AlertID).
				Str("rule", res.Rule).
				Str("tenant_id", sample.TenantID).
				Msg("alert queue full, envelope dropped")
		}

		log.Debug().
			Str("alert_id", envelope.AlertID).
			Str("rule", res.Rule).
			Str("tenant_id", sample.TenantID).
			Float64("value", sample.Value).
			Str("status", envelope.Status).
			Str("prev_status", prevStatus).
			Msg("alert emitted")
	}

	return results
}
