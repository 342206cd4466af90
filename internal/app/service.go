// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/driftmark/internal/domain/evaluate"
	"github.com/okian/driftmark/internal/domain/types"
	"github.com/okian/driftmark/pkg/logger"
	"github.com/okian/driftmark/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount       = 4
	defaultParallelMinGroups = 64
	defaultMaxEvalRows       = 1_000_000
	defaultMethod            = evaluate.FirstLast
)

// Service implements the API dependencies for the change evaluation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	evaluator evaluate.Evaluator

	// Configuration
	workerCount       int
	parallelMinGroups int
	maxEvalRows       int
	defaultThreshold  float64
	defaultMethod     evaluate.Method

	// Running totals for /stats
	evaluations atomic.Int64
	changeRows  atomic.Int64
	flaggedRows atomic.Int64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of group evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithParallelMinGroups sets the group count below which evaluation stays sequential.
func WithParallelMinGroups(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.parallelMinGroups = count
		}
	}
}

// WithMaxEvalRows caps the number of records accepted per evaluation.
func WithMaxEvalRows(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.maxEvalRows = count
		}
	}
}

// WithDefaultThreshold sets the threshold applied when a request omits one.
func WithDefaultThreshold(threshold float64) Option {
	return func(s *Service) {
		s.defaultThreshold = threshold
	}
}

// WithDefaultMethod sets the change method applied when a request omits one.
// Invalid names are ignored and the existing default stands.
func WithDefaultMethod(method string) Option {
	return func(s *Service) {
		if m, err := evaluate.ParseMethod(method); err == nil {
			s.defaultMethod = m
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       defaultWorkerCount,
		parallelMinGroups: defaultParallelMinGroups,
		maxEvalRows:       defaultMaxEvalRows,
		defaultThreshold:  0,
		defaultMethod:     defaultMethod,
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting change evaluation service...")

	s.evaluator = evaluate.New(
		evaluate.WithParallelism(s.workerCount),
		evaluate.WithParallelMinGroups(s.parallelMinGroups),
	)
	metrics.UpdateWorkerCount(s.workerCount)

	s.started = true
	s.logger.Info(ctx, "change evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("maxEvalRows", s.maxEvalRows),
		logger.String("defaultMethod", s.defaultMethod.String()),
	)

	return nil
}

// Stop shuts down the service. The evaluator holds no state, so this only
// flips the started flag.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "change evaluation service stopped")
}

// Evaluate runs one evaluation, applying the configured defaults for an
// omitted method and enforcing the row cap.
func (s *Service) Evaluate(ctx context.Context, req evaluate.Request) ([]types.Change, error) {
	s.mu.RLock()
	ev := s.evaluator
	s.mu.RUnlock()

	if ev == nil {
		return nil, ErrNotStarted
	}

	if req.Method == "" {
		req.Method = s.defaultMethod
	}
	if len(req.Rows) > s.maxEvalRows {
		metrics.RecordEvaluationError("row_cap")
		return nil, fmt.Errorf("%w: %d rows, cap %d", ErrTooManyRows, len(req.Rows), s.maxEvalRows)
	}

	start := time.Now()
	rows, err := ev.Evaluate(ctx, req)
	if err != nil {
		metrics.RecordEvaluationError(evaluate.Kind(err))
		s.logger.Error(ctx, "evaluation failed",
			logger.String("method", req.Method.String()),
			logger.Error(err),
		)
		return nil, err
	}

	flaggedCount := 0
	for i := range rows {
		if rows[i].Flagged {
			flaggedCount++
		}
	}

	metrics.RecordEvaluation(req.Method.String())
	metrics.RecordObservations(len(req.Rows))
	metrics.RecordChangeRows(len(rows))
	metrics.RecordFlaggedRows(flaggedCount)
	metrics.RecordEvaluationDuration(float64(time.Since(start).Milliseconds()))

	s.evaluations.Add(1)
	s.changeRows.Add(int64(len(rows)))
	s.flaggedRows.Add(int64(flaggedCount))

	s.logger.Debug(ctx, "evaluation completed",
		logger.String("method", req.Method.String()),
		logger.Int("inputRows", len(req.Rows)),
		logger.Int("changeRows", len(rows)),
		logger.Int("flaggedRows", flaggedCount),
	)

	return rows, nil
}

// Defaults reports the configured fallback threshold and method for
// requests that omit them.
func (s *Service) Defaults() (float64, evaluate.Method) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultThreshold, s.defaultMethod
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"maxEvalRows": s.maxEvalRows,
		"evaluations": s.evaluations.Load(),
		"changeRows":  s.changeRows.Load(),
		"flaggedRows": s.flaggedRows.Load(),
	}
}
