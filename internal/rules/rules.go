// Package rules maps metric samples to Nagios plugin statuses using
// warning and critical threshold ranges.
package rules

import (
	"errors"
	"fmt"

	"threshd/internal/threshold"
)

// Status is the Nagios plugin status ladder. The numeric value is the
// conventional plugin exit code.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusCritical
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode returns the plugin exit code for the status.
func (s Status) ExitCode() int { return int(s) }

var (
	ErrEmptyRuleName   = errors.New("rule name cannot be empty")
	ErrEmptyRuleMetric = errors.New("rule metric cannot be empty")
	ErrNoThresholds    = errors.New("rule needs a warning or critical threshold")
)

// Rule checks samples of one metric against an optional warning range
// and an optional critical range. A Rule is immutable once built.
type Rule struct {
	name   string
	metric string

	warning     threshold.Range
	critical    threshold.Range
	hasWarning  bool
	hasCritical bool
}

// NewRule builds a rule from threshold expressions. An empty
// expression leaves that level unchecked; at least one level is
// required.
func NewRule(name, metric, warning, critical string) (Rule, error) {
	if name == "" {
		return Rule{}, ErrEmptyRuleName
	}
	if metric == "" {
		return Rule{}, ErrEmptyRuleMetric
	}
	if warning == "" && critical == "" {
		return Rule{}, ErrNoThresholds
	}

	r := Rule{name: name, metric: metric}

	if warning != "" {
		rng, err := threshold.Parse(warning)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: warning threshold: %w", name, err)
		}
		r.warning = rng
		r.hasWarning = true
	}

	if critical != "" {
		rng, err := threshold.Parse(critical)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: critical threshold: %w", name, err)
		}
		r.critical = rng
		r.hasCritical = true
	}

	return r, nil
}

// Name returns the rule name.
func (r Rule) Name() string { return r.name }

// Metric returns the metric name the rule applies to.
func (r Rule) Metric() string { return r.metric }

// WarningText returns the canonical warning expression, or "" when
// the level is unchecked.
func (r Rule) WarningText() string {
	if !r.hasWarning {
		return ""
	}
	return r.warning.String()
}

// CriticalText returns the canonical critical expression, or "" when
// the level is unchecked.
func (r Rule) CriticalText() string {
	if !r.hasCritical {
		return ""
	}
	return r.critical.String()
}

// Evaluate returns the status for a sample value. Critical wins over
// warning.
func (r Rule) Evaluate(value float64) Status {
	if r.hasCritical && r.critical.Alerts(value) {
		return StatusCritical
	}
	if r.hasWarning && r.warning.Alerts(value) {
		return StatusWarning
	}
	return StatusOK
}

// Result is the outcome of evaluating one rule against one value.
type Result struct {
	Rule     string
	Metric   string
	Value    float64
	Status   Status
	Warning  string
	Critical string
}

// Ruleset indexes rules by metric name. It is built once at startup
// and read-only afterwards, so lookups need no locking.
type Ruleset struct {
	byMetric map[string][]Rule
	count    int
}

// NewRuleset builds a ruleset from the given rules.
func NewRuleset(rules ...Rule) *Ruleset {
	rs := &Ruleset{byMetric: make(map[string][]Rule)}
	for _, r := range rules {
		rs.byMetric[r.metric] = append(rs.byMetric[r.metric], r)
		rs.count++
	}
	return rs
}

// Len returns the number of rules in the set.
func (rs *Ruleset) Len() int { return rs.count }

// Rules returns the rules registered for a metric.
func (rs *Ruleset) Rules(metric string) []Rule {
	return rs.byMetric[metric]
}

// Evaluate runs every rule registered for the metric against the
// value. The slice is empty when no rule covers the metric.
func (rs *Ruleset) Evaluate(metric string, value float64) []Result {
	matched := rs.byMetric[metric]
	if len(matched) == 0 {
		return nil
	}

	results := make([]Result, 0, len(matched))
	for _, r := range matched {
		results = append(results, Result{
			Rule:     r.name,
			Metric:   r.metric,
			Value:    value,
			Status:   r.Evaluate(value),
			Warning:  r.WarningText(),
			Critical: r.CriticalText(),
		})
	}
	return results
}
