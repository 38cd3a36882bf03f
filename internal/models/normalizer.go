package models

import (
	"strings"
	"time"
)

// SupportedTimestampFormats lists formats we attempt to parse
var SupportedTimestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.UnixDate,
}

// Normalize applies field normalization to a MetricSample
// - lower-cases the metric name
// - trims identifier fields
// - lower-cases label keys
func (s *MetricSample) Normalize() {
	s.ID = strings.TrimSpace(s.ID)
	s.TenantID = strings.TrimSpace(s.TenantID)
	s.Metric = strings.ToLower(strings.TrimSpace(s.Metric))

	if s.Labels != nil {
		normalized := make(map[string]string, len(s.Labels))
		for k, v := range s.Labels {
			normalized[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		s.Labels = normalized
	}
}

// ParseTimestamp attempts to parse a timestamp string into time.Time
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)

	for _, format := range SupportedTimestampFormats {
		if t, err := time.Parse(format, ts); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}
