package loadtest

import (
	"context"
	"math"

	"github.com/okian/driftmark/pkg/logger"
)

// verifyResponse checks one evaluation response against the invariants the
// service guarantees and returns the number of violations found.
func verifyResponse(ctx context.Context, config *Config, resp *EvaluateResponse) int {
	violations := 0

	// Flag consistency: flagged exactly when |change| >= threshold.
	for i := range resp.Rows {
		row := &resp.Rows[i]
		want := math.Abs(row.Change) >= config.Threshold
		if row.Flagged != want {
			violations++
			if config.Verbose {
				logger.Get().Warn(ctx, "flag inconsistency",
					logger.String("subject", row.Subject),
					logger.Float64("change", row.Change),
					logger.Any("flagged", row.Flagged))
			}
		}
	}

	// FlaggedCount must agree with the rows.
	flagged := 0
	for i := range resp.Rows {
		if resp.Rows[i].Flagged {
			flagged++
		}
	}
	if flagged != resp.FlaggedCount {
		violations++
	}

	// Row count laws. The generator emits exactly Timepoints observations per
	// subject, so the expected counts are exact.
	expected := expectedRowCount(config)
	if expected >= 0 && resp.Count != expected {
		violations++
		if config.Verbose {
			logger.Get().Warn(ctx, "row count mismatch",
				logger.String("method", resp.Method),
				logger.Int("expected", expected),
				logger.Int("got", resp.Count))
		}
	}

	// Subjects must come back in ascending order.
	for i := 1; i < len(resp.Rows); i++ {
		if resp.Rows[i].Subject < resp.Rows[i-1].Subject {
			violations++
			break
		}
	}

	return violations
}

// expectedRowCount returns the output row count implied by the panel shape,
// or -1 when the method is unknown.
func expectedRowCount(config *Config) int {
	switch config.Method {
	case "first_last":
		return config.NumSubjects
	case "mean_change":
		if config.Timepoints < 2 {
			return 0
		}
		return config.NumSubjects
	case "all_timepoints":
		if config.Timepoints < 1 {
			return 0
		}
		return config.NumSubjects * (config.Timepoints - 1)
	default:
		return -1
	}
}
