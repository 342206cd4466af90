package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/driftmark/pkg/logger"
)

// HTTP status constants.
const (
	statusOK = 200
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitBatches generates and submits evaluation batches concurrently using a
// worker pool. Each successful response is verified against the evaluator's
// invariants before it counts toward the totals.
func submitBatches(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "submitting evaluation batches",
		logger.Int("batches", config.Batches),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/evaluate"

	// Counters for statistics
	var (
		submitted   int64
		failed      int64
		rows        int64
		changeRows  int64
		flaggedRows int64
		violations  int64
	)

	// Create worker pool
	batchChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				records, err := generatePanel(ctx, config)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}

				resp, err := submitSingleBatch(ctx, client, url, config, records)
				atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "batch failed", logger.Error(err))
					}
					continue
				}

				atomic.AddInt64(&rows, int64(len(records)))
				atomic.AddInt64(&changeRows, int64(resp.Count))
				atomic.AddInt64(&flaggedRows, int64(resp.FlaggedCount))
				atomic.AddInt64(&violations, int64(verifyResponse(ctx, config, resp)))
			}
		}()
	}

	// Send batch indexes to workers
	go func() {
		defer close(batchChan)
		for i := 0; i < config.Batches; i++ {
			select {
			case <-ctx.Done():
				return
			case batchChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))
	stats.RowsSubmitted = int(atomic.LoadInt64(&rows))
	stats.ChangeRows = int(atomic.LoadInt64(&changeRows))
	stats.FlaggedRows = int(atomic.LoadInt64(&flaggedRows))
	stats.Violations = int(atomic.LoadInt64(&violations))

	logger.Get().Info(ctx, "batch submission completed",
		logger.Int("submitted", stats.BatchesSubmitted),
		logger.Int("failed", stats.BatchesFailed),
		logger.Int("violations", stats.Violations))

	return nil
}

// submitSingleBatch posts one evaluation request and decodes the response.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, config *Config, records []map[string]any) (*EvaluateResponse, error) {
	req := EvaluateRequest{
		Records:      records,
		SubjectField: "subject",
		TimeField:    "time",
		ValueField:   "value",
		Threshold:    config.Threshold,
		Method:       config.Method,
	}

	resp, err := client.Post(ctx, url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit batch: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out EvaluateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
