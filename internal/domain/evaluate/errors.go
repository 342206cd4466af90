package evaluate

import "errors"

// Sentinel kinds for evaluator errors. These allow errors.Is/As from callers.
var (
	ErrMissingField  = errors.New("missing required field")
	ErrNotNumeric    = errors.New("non-numeric field value")
	ErrUnknownMethod = errors.New("unknown change method")
)

// Canonical kind labels, shared by metrics and the HTTP error mapping.
const (
	KindSchema   = "schema_error"
	KindCoercion = "type_coercion"
	KindMethod   = "invalid_method"
	KindInternal = "internal"
)

// Kind maps an evaluator error to its canonical kind label.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return KindSchema
	case errors.Is(err, ErrNotNumeric):
		return KindCoercion
	case errors.Is(err, ErrUnknownMethod):
		return KindMethod
	default:
		return KindInternal
	}
}
