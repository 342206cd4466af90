package loadtest

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/driftmark/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor  = 1000000
	driftProfileDivisor = 5
)

// Constants for synthetic drift profiles (per-step value change).
const (
	stableNoise   = 0.2
	slowDriftStep = 0.5
	fastDriftStep = 2.0
	declineStep   = -1.5
	baselineMin   = 5.0
	baselineRange = 20.0
	sawtoothSwing = 3.0
)

// Constants for drift profile cases.
const (
	caseStable    = 0
	caseSlowDrift = 1
	caseFastDrift = 2
	caseDecline   = 3
	caseSawtooth  = 4
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generatePanel creates one long-format panel: numSubjects subjects, each
// observed at timepoints consecutive times, with a mix of drift profiles so
// both flagged and unflagged subjects appear.
func generatePanel(ctx context.Context, config *Config) ([]map[string]any, error) {
	logger.Get().Debug(ctx, "generating panel",
		logger.Int("subjects", config.NumSubjects),
		logger.Int("timepoints", config.Timepoints),
	)

	records := make([]map[string]any, 0, config.NumSubjects*config.Timepoints)
	for s := 0; s < config.NumSubjects; s++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		subjectID := uuid.New().String()
		baseline := baselineMin + getRandomFloat()*baselineRange
		profile := randomProfile()

		value := baseline
		for t := 0; t < config.Timepoints; t++ {
			records = append(records, map[string]any{
				"subject": subjectID,
				"time":    float64(t),
				"value":   value,
			})
			value = nextValue(value, profile, t)
		}
	}

	return records, nil
}

// randomProfile picks a drift profile case.
func randomProfile() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(driftProfileDivisor))
	return n.Int64()
}

// nextValue advances a subject's value by one step of its drift profile.
func nextValue(value float64, profile int64, step int) float64 {
	switch profile {
	case caseStable:
		// Hovers around baseline
		return value + (getRandomFloat()-0.5)*stableNoise
	case caseSlowDrift:
		return value + slowDriftStep
	case caseFastDrift:
		return value + fastDriftStep
	case caseDecline:
		return value + declineStep
	case caseSawtooth:
		// Alternates up and down; near-zero net and mean change
		if step%2 == 0 {
			return value + sawtoothSwing
		}
		return value - sawtoothSwing
	default:
		return value
	}
}
