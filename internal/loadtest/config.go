// Package loadtest generates synthetic longitudinal panels, submits them to
// a running driftmark service, and verifies the evaluator's invariants hold
// on the responses.
package loadtest

import "time"

// Config holds configuration for the load test.
type Config struct {
	BaseURL     string        // Base URL of the service
	Batches     int           // Number of evaluation requests to send
	NumSubjects int           // Subjects per generated panel
	Timepoints  int           // Observations per subject
	Threshold   float64       // Threshold submitted with each request
	Method      string        // Change method submitted with each request
	Workers     int           // Number of concurrent submission workers
	Timeout     time.Duration // HTTP request timeout
	Verbose     bool          // Enable verbose logging
}

// EvaluateRequest mirrors the request schema for POST /evaluate.
type EvaluateRequest struct {
	Records      []map[string]any `json:"records"`
	SubjectField string           `json:"subject_field"`
	TimeField    string           `json:"time_field"`
	ValueField   string           `json:"value_field"`
	Threshold    float64          `json:"threshold"`
	Method       string           `json:"method"`
}

// ChangeRow mirrors one output row of an evaluation response.
type ChangeRow struct {
	Subject    string   `json:"subject"`
	FirstValue *float64 `json:"first_value,omitempty"`
	LastValue  *float64 `json:"last_value,omitempty"`
	FromTime   *float64 `json:"from_time,omitempty"`
	ToTime     *float64 `json:"to_time,omitempty"`
	Change     float64  `json:"change"`
	Flagged    bool     `json:"flagged"`
}

// EvaluateResponse mirrors the response schema for POST /evaluate.
type EvaluateResponse struct {
	Method       string      `json:"method"`
	Count        int         `json:"count"`
	FlaggedCount int         `json:"flagged_count"`
	Rows         []ChangeRow `json:"rows"`
}

// Stats holds load test statistics.
type Stats struct {
	BatchesSubmitted int
	BatchesFailed    int
	RowsSubmitted    int
	ChangeRows       int
	FlaggedRows      int
	Violations       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
