// Package types contains common types used across the application
package types

// Change is one evaluated output row. FirstValue and LastValue are set only
// for the first-last method, FromTime and ToTime only for the all-timepoints
// method; mean-change rows carry the subject, change and flag alone.
type Change struct {
	Subject    string   `json:"subject"`
	FirstValue *float64 `json:"first_value,omitempty"`
	LastValue  *float64 `json:"last_value,omitempty"`
	FromTime   *float64 `json:"from_time,omitempty"`
	ToTime     *float64 `json:"to_time,omitempty"`
	Change     float64  `json:"change"`
	Flagged    bool     `json:"flagged"`
}
