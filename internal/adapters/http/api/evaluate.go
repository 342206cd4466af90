// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/driftmark/internal/domain/evaluate"
)

// EvaluateHandler handles change evaluation requests.
type EvaluateHandler struct {
	deps Dependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps Dependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// HandleEvaluate handles POST /evaluate requests.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	defaultThreshold, defaultMethod := h.deps.Defaults()

	method := defaultMethod
	if req.Method != "" {
		parsed, err := evaluate.ParseMethod(req.Method)
		if err != nil {
			writeError(w, http.StatusBadRequest, evaluate.KindMethod, WrapKind(op, ErrBadRequest, err))
			return
		}
		method = parsed
	}

	threshold := defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	rows := make([]evaluate.Row, len(req.Records))
	for i := range req.Records {
		rows[i] = req.Records[i]
	}

	result, err := h.deps.Evaluate(r.Context(), evaluate.Request{
		Rows:         rows,
		SubjectField: req.SubjectField,
		TimeField:    req.TimeField,
		ValueField:   req.ValueField,
		Threshold:    threshold,
		Method:       method,
	})
	if err != nil {
		writeEvaluateError(w, op, err)
		return
	}

	flagged := 0
	for i := range result {
		if result[i].Flagged {
			flagged++
		}
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Method:       method.String(),
		Count:        len(result),
		FlaggedCount: flagged,
		Rows:         result,
	})
}

// writeEvaluateError maps evaluator and service errors to HTTP statuses.
func writeEvaluateError(w http.ResponseWriter, op string, err error) {
	if isRowCap(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "row_cap", NewKind(op, err))
		return
	}

	switch kind := evaluate.Kind(err); kind {
	case evaluate.KindSchema, evaluate.KindCoercion, evaluate.KindMethod:
		writeError(w, http.StatusBadRequest, kind, NewKind(op, err))
	default:
		writeError(w, http.StatusInternalServerError, kind, NewKind(op, err))
	}
}

// isRowCap allows the API to translate the service's row cap error to 413.
// This stays generic to avoid tight coupling with specific packages.
func isRowCap(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRowCap) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "row cap")
}
