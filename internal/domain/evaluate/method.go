package evaluate

import (
	"fmt"
	"strings"
)

// Method selects how change is computed within each subject group.
type Method string

// Enumerated change methods.
const (
	// FirstLast emits one row per subject: last value minus first value.
	FirstLast Method = "first_last"
	// MeanChange emits one row per subject: the mean of stepwise differences.
	// Subjects with a single observation emit nothing.
	MeanChange Method = "mean_change"
	// AllTimepoints emits one row per consecutive timepoint pair.
	AllTimepoints Method = "all_timepoints"
)

// ParseMethod validates a method name. The empty string is not a method;
// callers that want a default must apply it before parsing.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case FirstLast:
		return FirstLast, nil
	case MeanChange:
		return MeanChange, nil
	case AllTimepoints:
		return AllTimepoints, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// String returns the wire name of the method.
func (m Method) String() string {
	return string(m)
}

func (m Method) valid() bool {
	switch m {
	case FirstLast, MeanChange, AllTimepoints:
		return true
	default:
		return false
	}
}
