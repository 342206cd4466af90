package evaluate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// toFloat coerces a projected field value to float64. Strings are parsed,
// numeric types are widened. NaN is rejected: a NaN time or value would make
// the flag comparison undefined, and a bool cannot carry that, so the row is
// refused up front instead.
func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("%w: NaN", ErrNotNumeric)
	}
	return f, nil
}

// subjectKey canonicalizes a subject identifier to its string form. Subjects
// are opaque comparable keys, not necessarily numeric: integers, floats,
// strings and bools are all accepted. Numeric forms collapse to a canonical
// representation so 1 and 1.0 name the same subject.
func subjectKey(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		f, err := toFloat(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
}

// subjectLess orders subject keys: numerically when both parse as numbers,
// byte-wise otherwise, numbers before text. This keeps integer-keyed panels
// in ascending subject order.
func subjectLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
