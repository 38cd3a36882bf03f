package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"threshd/internal/models"
	"threshd/internal/rules"
)

type fakeEvaluator struct {
	samples []*models.MetricSample
}

func (f *fakeEvaluator) EvaluateSample(sample *models.MetricSample) []rules.Result {
	f.samples = append(f.samples, sample)
	return nil
}

func sampleMessage(t *testing.T, sample models.MetricSample) kafka.Message {
	t.Helper()
	data, err := json.Marshal(sample)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return kafka.Message{Value: data, Time: time.Now()}
}

func TestHandleMessageEvaluatesSample(t *testing.T) {
	eval := &fakeEvaluator{}
	c := &Consumer{evaluator: eval}

	c.handleMessage(sampleMessage(t, models.MetricSample{
		ID:        "smp-1",
		TenantID:  "tenant-1",
		Metric:    "CPU",
		Value:     42,
		Timestamp: time.Now(),
	}))

	if len(eval.samples) != 1 {
		t.Fatalf("evaluator saw %d samples", len(eval.samples))
	}
	if eval.samples[0].Metric != "cpu" {
		t.Errorf("metric = %q, want normalized %q", eval.samples[0].Metric, "cpu")
	}
}

func TestHandleMessageDefaultsTimestamp(t *testing.T) {
	eval := &fakeEvaluator{}
	c := &Consumer{evaluator: eval}

	msg := sampleMessage(t, models.MetricSample{
		ID:       "smp-1",
		TenantID: "tenant-1",
		Metric:   "cpu",
		Value:    42,
	})
	c.handleMessage(msg)

	if len(eval.samples) != 1 {
		t.Fatalf("evaluator saw %d samples", len(eval.samples))
	}
	if !eval.samples[0].Timestamp.Equal(msg.Time) {
		t.Errorf("timestamp = %v, want message time %v", eval.samples[0].Timestamp, msg.Time)
	}
}

func TestHandleMessageDropsUndecodable(t *testing.T) {
	eval := &fakeEvaluator{}
	c := &Consumer{evaluator: eval}

	c.handleMessage(kafka.Message{Value: []byte("not json")})

	if len(eval.samples) != 0 {
		t.Error("undecodable message must not reach the evaluator")
	}
}

func TestHandleMessageDropsInvalid(t *testing.T) {
	eval := &fakeEvaluator{}
	c := &Consumer{evaluator: eval}

	// missing tenant
	c.handleMessage(sampleMessage(t, models.MetricSample{
		ID:        "smp-1",
		Metric:    "cpu",
		Value:     42,
		Timestamp: time.Now(),
	}))

	if len(eval.samples) != 0 {
		t.Error("invalid sample must not reach the evaluator")
	}
}
