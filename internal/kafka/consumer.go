package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"threshd/internal/logger"
	"threshd/internal/metrics"
	"threshd/internal/models"
	"threshd/internal/rules"
)

// SampleEvaluator runs a validated sample through the configured
// rules.
type SampleEvaluator interface {
	EvaluateSample(sample *models.MetricSample) []rules.Result
}

// Consumer reads metric samples from a Kafka topic and feeds them
// through the evaluation pipeline, as an alternative ingest path to
// HTTP.
type Consumer struct {
	reader    *kafka.Reader
	evaluator SampleEvaluator
}

// NewConsumer creates a consumer for the given topic and group.
func NewConsumer(brokers []string, topic, groupID string, evaluator SampleEvaluator) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10 * 1024 * 1024, // 10MB
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		evaluator: evaluator,
	}
}

// Start consumes messages until the context is cancelled or the
// reader is closed.
func (c *Consumer) Start(ctx context.Context) error {
	log := logger.WithComponent("kafka_consumer")
	log.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group", c.reader.Config().GroupID).
		Msg("consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info().Msg("consumer stopped")
				return nil
			}
			log.Error().Err(err).Msg("failed to read message")
			return err
		}

		c.handleMessage(msg)
	}
}

// handleMessage decodes and evaluates one sample message. Malformed
// messages are counted and skipped; the stream keeps going.
func (c *Consumer) handleMessage(msg kafka.Message) {
	log := logger.WithComponent("kafka_consumer")

	var sample models.MetricSample
	if err := json.Unmarshal(msg.Value, &sample); err != nil {
		log.Warn().
			Err(err).
			Int64("offset", msg.Offset).
			Msg("dropping undecodable sample")
		metrics.KafkaSamplesConsumed.WithLabelValues("rejected").Inc()
		return
	}

	if sample.Timestamp.IsZero() {
		sample.Timestamp = msg.Time
	}

	sample.Normalize()

	if err := sample.Validate(); err != nil {
		log.Warn().
			Err(err).
			Str("sample_id", sample.ID).
			Msg("dropping invalid sample")
		metrics.KafkaSamplesConsumed.WithLabelValues("rejected").Inc()
		return
	}

	c.evaluator.EvaluateSample(&sample)
	metrics.KafkaSamplesConsumed.WithLabelValues("evaluated").Inc()
}

// Stop closes the reader, unblocking Start.
func (c *Consumer) Stop() error {
	return c.reader.Close()
}
