// Package service wires the threshold evaluation pipeline: rules,
// HTTP and Kafka ingest, state tracking, and alert publishing.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threshd/internal/config"
	"threshd/internal/handlers"
	"threshd/internal/kafka"
	"threshd/internal/logger"
	"threshd/internal/metrics"
	"threshd/internal/middleware"
	"threshd/internal/models"
	"threshd/internal/rules"
	"threshd/internal/state"
	"threshd/internal/storage"
	"threshd/internal/worker"
)

// Service is the high-level coordinator for ingesting, evaluating,
// and publishing alerts.
type Service struct {
	cfg        *config.Config
	ruleset    *rules.Ruleset
	engine     *Engine
	producer   *kafka.Producer
	consumer   *kafka.Consumer
	workerPool *worker.Pool
	states     state.Store
	history    storage.Store
	httpServer *http.Server
	alertChan  chan *models.AlertEnvelope
	nodeID     string
	wg         sync.WaitGroup
}

// New constructs a Service with the given config. Rule definitions
// are parsed here so a malformed threshold fails startup rather than
// the first evaluation.
func New(cfg *config.Config) (*Service, error) {
	parsed := make([]rules.Rule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		r, err := rules.NewRule(rc.Name, rc.Metric, rc.Warning, rc.Critical)
		if err != nil {
			metrics.ThresholdParseErrors.Inc()
			return nil, fmt.Errorf("invalid rule config: %w", err)
		}
		parsed = append(parsed, r)
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID, _ = os.Hostname()
		if nodeID == "" {
			nodeID = "unknown"
		}
	}

	queueSize := cfg.Worker.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	s := &Service{
		cfg:       cfg,
		ruleset:   rules.NewRuleset(parsed...),
		states:    state.NewMemoryStore(),
		history:   storage.NewMemoryStore(queueSize),
		alertChan: make(chan *models.AlertEnvelope, queueSize),
		nodeID:    nodeID,
	}
	s.engine = NewEngine(s.ruleset, s.states, s.history, s.alertChan, nodeID)
	return s, nil
}

// Engine returns the evaluation engine, shared by ingest paths.
func (s *Service) Engine() *Engine { return s.engine }

// Run starts background goroutines and blocks until context cancelled.
func (s *Service) Run(ctx context.Context) error {
	log := logger.WithComponent("service")
	log.Info().Int("rules", s.ruleset.Len()).Str("node", s.nodeID).Msg("service starting")

	if err := s.initProducer(); err != nil {
		log.Error().Err(err).Msg("failed to initialize producer")
		return fmt.Errorf("failed to initialize producer: %w", err)
	}

	s.initWorkerPool()
	s.workerPool.Start()

	s.initHTTPServer()

	// Start HTTP server in background
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info().Str("addr", s.cfg.HTTP.Addr).Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Optional Kafka ingest path
	if s.cfg.Kafka.SamplesTopic != "" {
		s.consumer = kafka.NewConsumer(
			s.cfg.Kafka.Brokers,
			s.cfg.Kafka.SamplesTopic,
			s.cfg.Kafka.ConsumerGroup,
			s.engine,
		)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("consumer error")
			}
		}()
	}

	// Stats reporting goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reportStats(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return s.shutdown()
}

// initProducer initializes the Kafka producer
func (s *Service) initProducer() error {
	log := logger.WithComponent("service")
	producer, err := kafka.NewProducer(
		s.cfg.Kafka.Brokers,
		s.cfg.Kafka.AlertsTopic,
		s.cfg.Kafka.Producer,
	)
	if err != nil {
		return err
	}

	s.producer = producer
	log.Info().
		Strs("brokers", s.cfg.Kafka.Brokers).
		Str("topic", s.cfg.Kafka.AlertsTopic).
		Msg("kafka producer initialized")
	return nil
}

// initWorkerPool initializes the worker pool
func (s *Service) initWorkerPool() {
	log := logger.WithComponent("service")
	s.workerPool = worker.NewPool(worker.Config{
		Publisher:    s.producer,
		AlertChan:    s.alertChan,
		Workers:      s.cfg.Worker.Workers,
		BatchSize:    s.cfg.Worker.BatchSize,
		BatchTimeout: s.cfg.Worker.BatchTimeout,
	})
	log.Info().Int("workers", s.cfg.Worker.Workers).Msg("worker pool initialized")
}

// initHTTPServer initializes the HTTP server with handlers
func (s *Service) initHTTPServer() {
	mux := http.NewServeMux()

	evaluateHandler := handlers.NewEvaluateHandler(handlers.EvaluateConfig{
		Evaluator:   s.engine,
		MaxBodySize: s.cfg.HTTP.MaxBodySize,
	})
	mux.Handle("/evaluate", middleware.Chain(
		evaluateHandler,
		middleware.Recovery,
		middleware.Logging,
		middleware.APIKey(s.cfg.Auth.APIKey),
	))

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/alerts", s.alertsHandler)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	metrics.WorkerQueueCapacity.Set(float64(cap(s.alertChan)))

	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}
}

// shutdown performs graceful shutdown
func (s *Service) shutdown() error {
	log := logger.WithComponent("service")
	log.Info().Msg("initiating graceful shutdown")

	// 1. Stop accepting new HTTP requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the consumer so no new samples enter the pipeline
	if s.consumer != nil {
		log.Info().Msg("stopping kafka consumer")
		if err := s.consumer.Stop(); err != nil {
			log.Error().Err(err).Msg("consumer stop error")
		}
	}

	// 3. Close alert channel to signal no more incoming envelopes
	log.Info().Msg("closing alert channel")
	close(s.alertChan)

	// 4. Wait for workers to finish publishing (with timeout)
	done := make(chan struct{})
	go func() {
		s.workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("workers stopped gracefully")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("worker shutdown timeout - forcing exit")
	}

	// 5. Close producer and stores
	log.Info().Msg("closing kafka producer")
	if err := s.producer.Close(); err != nil {
		log.Error().Err(err).Msg("producer close error")
	}
	s.states.Close()
	s.history.Close()

	// 6. Wait for all goroutines
	s.wg.Wait()

	log.Info().Msg("service stopped gracefully")
	return nil
}

// reportStats periodically logs statistics
func (s *Service) reportStats(ctx context.Context) {
	log := logger.WithComponent("service")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			workerStats := s.workerPool.Stats()
			producerStats := s.producer.Stats()

			metrics.WorkerQueueSize.Set(float64(len(s.alertChan)))

			log.Info().
				Uint64("worker_processed", workerStats.Processed).
				Uint64("worker_failed", workerStats.Failed).
				Uint64("producer_sent", producerStats.MessagesSent).
				Uint64("producer_failed", producerStats.MessagesFailed).
				Uint64("producer_bytes", producerStats.BytesWritten).
				Int("queue_size", len(s.alertChan)).
				Msg("stats")
		}
	}
}

// healthHandler handles health check requests
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.producer.HealthCheck(ctx); err != nil {
		http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// statsHandler returns current statistics
func (s *Service) statsHandler(w http.ResponseWriter, r *http.Request) {
	workerStats := s.workerPool.Stats()
	producerStats := s.producer.Stats()

	stats := map[string]interface{}{
		"rules": s.ruleset.Len(),
		"worker": map[string]uint64{
			"processed": workerStats.Processed,
			"failed":    workerStats.Failed,
		},
		"producer": map[string]uint64{
			"messages_sent":   producerStats.MessagesSent,
			"messages_failed": producerStats.MessagesFailed,
			"bytes_written":   producerStats.BytesWritten,
		},
		"queue": map[string]int{
			"buffered": len(s.alertChan),
			"capacity": cap(s.alertChan),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

// alertsHandler returns recent alert envelopes, newest first
func (s *Service) alertsHandler(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid n parameter", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.history.Recent(n))
}
