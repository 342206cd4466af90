package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/driftmark/pkg/logger"
)

// PercentageMultiplier converts a ratio to a percentage.
const PercentageMultiplier = 100

// Run executes the complete evaluation load test.
func Run(ctx context.Context, config *Config) error {
	if err := validate(config); err != nil {
		return err
	}

	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting driftmark load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("batches", config.Batches),
		logger.Int("subjects", config.NumSubjects),
		logger.Int("timepoints", config.Timepoints),
		logger.Float64("threshold", config.Threshold),
		logger.String("method", config.Method),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate, submit and verify batches
	if err := submitBatches(ctx, config, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.Violations > 0 {
		return fmt.Errorf("load test found %d invariant violations", stats.Violations)
	}

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// validate rejects panel shapes the generator cannot produce.
func validate(config *Config) error {
	if config.Batches < 1 {
		return fmt.Errorf("batches must be at least 1")
	}
	if config.NumSubjects < 1 {
		return fmt.Errorf("subjects must be at least 1")
	}
	if config.Timepoints < 1 {
		return fmt.Errorf("timepoints must be at least 1")
	}
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, batchesPerSecond float64

	if stats.BatchesSubmitted > 0 {
		successRate = float64(stats.BatchesSubmitted-stats.BatchesFailed) / float64(stats.BatchesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("rowsSubmitted", stats.RowsSubmitted),
		logger.Int("changeRows", stats.ChangeRows),
		logger.Int("flaggedRows", stats.FlaggedRows),
		logger.Int("violations", stats.Violations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("batchesPerSecond", batchesPerSecond))
}
