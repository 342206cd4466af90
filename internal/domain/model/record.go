// Package model contains domain models passed between layers.
package model

// Observation is one subject's measurement at one timepoint, after the
// caller's row has been projected onto the three roles and coerced to
// numeric. Seq preserves the original row position so ties in time keep
// their input order.
type Observation struct {
	Subject string  // canonical subject key
	Time    float64 // observation timepoint
	Value   float64 // measured value
	Seq     int     // original row index
}

// Group is one subject's observations, sorted ascending by time.
type Group struct {
	Subject      string
	Observations []Observation
}

// Len returns the number of observations in the group.
func (g Group) Len() int {
	return len(g.Observations)
}
