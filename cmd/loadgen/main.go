package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/driftmark/internal/loadtest"
	"github.com/okian/driftmark/pkg/logger"
)

// Default configuration constants.
const (
	defaultBatches     = 50
	defaultSubjects    = 200
	defaultTimepoints  = 5
	defaultThreshold   = 3.0
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		batches    = flag.Int("batches", defaultBatches, "Number of evaluation requests to send")
		subjects   = flag.Int("subjects", defaultSubjects, "Subjects per generated panel")
		timepoints = flag.Int("timepoints", defaultTimepoints, "Observations per subject")
		threshold  = flag.Float64("threshold", defaultThreshold, "Change magnitude at which a row is flagged")
		method     = flag.String("method", "first_last", "Change method: first_last, mean_change or all_timepoints")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &loadtest.Config{
		BaseURL:     *baseURL,
		Batches:     *batches,
		NumSubjects: *subjects,
		Timepoints:  *timepoints,
		Threshold:   *threshold,
		Method:      *method,
		Workers:     *workers,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}

	// Run the test
	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
