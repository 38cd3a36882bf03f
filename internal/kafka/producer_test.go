package kafka

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go/compress"

	"threshd/internal/config"
	"threshd/internal/logger"
	"threshd/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init("disabled")
	os.Exit(m.Run())
}

// skipIfNoKafka skips the test if Kafka is not available
func skipIfNoKafka(t *testing.T) {
	if os.Getenv("KAFKA_TEST") != "1" {
		t.Skip("Skipping Kafka integration test. Set KAFKA_TEST=1 to run.")
	}
}

func testEnvelope() *models.AlertEnvelope {
	sample := &models.MetricSample{
		ID:        "smp-1",
		TenantID:  "tenant-1",
		Metric:    "cpu",
		Value:     95,
		Timestamp: time.Now(),
	}
	return models.NewAlertEnvelope(sample, "cpu_check", "CRITICAL", "OK", "test-node")
}

func TestNewProducerValidation(t *testing.T) {
	if _, err := NewProducer(nil, "alerts", config.ProducerConfig{}); err == nil {
		t.Error("expected error for missing brokers")
	}
	if _, err := NewProducer([]string{"localhost:9092"}, "", config.ProducerConfig{}); err == nil {
		t.Error("expected error for missing topic")
	}
}

func TestNewProducerDefaultsPoolSize(t *testing.T) {
	p, err := NewProducer([]string{"localhost:9092"}, "alerts", config.ProducerConfig{})
	if err != nil {
		t.Fatalf("NewProducer error: %v", err)
	}
	defer p.Close()

	if len(p.writers) != 4 {
		t.Errorf("writers = %d, want default 4", len(p.writers))
	}
}

func TestProducerCloseIdempotent(t *testing.T) {
	p, err := NewProducer([]string{"localhost:9092"}, "alerts", config.ProducerConfig{PoolSize: 1})
	if err != nil {
		t.Fatalf("NewProducer error: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("first Close error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}

	if err := p.Publish(context.Background(), testEnvelope()); err != ErrProducerClosed {
		t.Errorf("Publish after Close = %v, want ErrProducerClosed", err)
	}
}

func TestMessageConstruction(t *testing.T) {
	env := testEnvelope()
	msg, err := message(env)
	if err != nil {
		t.Fatalf("message error: %v", err)
	}

	if string(msg.Key) != "tenant-1" {
		t.Errorf("key = %q, want tenant partition key", msg.Key)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["alert_id"] != env.AlertID || headers["rule"] != "cpu_check" || headers["status"] != "CRITICAL" {
		t.Errorf("headers = %v", headers)
	}

	var decoded models.AlertEnvelope
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload decode error: %v", err)
	}
	if decoded.AlertID != env.AlertID || decoded.Sample.Value != 95 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestGetCompression(t *testing.T) {
	tests := []struct {
		name string
		want compress.Compression
	}{
		{"gzip", compress.Gzip},
		{"snappy", compress.Snappy},
		{"lz4", compress.Lz4},
		{"zstd", compress.Zstd},
		{"", compress.None},
		{"bogus", compress.None},
	}

	for _, tt := range tests {
		if got := getCompression(tt.name); got != tt.want {
			t.Errorf("getCompression(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProducerPublishIntegration(t *testing.T) {
	skipIfNoKafka(t)

	brokers := []string{os.Getenv("KAFKA_BROKER")}
	if brokers[0] == "" {
		brokers[0] = "localhost:9092"
	}

	p, err := NewProducer(brokers, "threshd.alerts.test", config.ProducerConfig{
		PoolSize:     1,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxRetries:   1,
		RetryBackoff: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewProducer error: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.Publish(ctx, testEnvelope()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	stats := p.Stats()
	if stats.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d", stats.MessagesSent)
	}
}
