// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/driftmark/internal/domain/evaluate"
	"github.com/okian/driftmark/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Evaluate runs one change evaluation over the supplied records.
	Evaluate(ctx context.Context, req evaluate.Request) ([]types.Change, error)

	// Defaults reports the configured fallback threshold and method for
	// requests that omit them.
	Defaults() (float64, evaluate.Method)
}

// StatsProvider exposes service statistics for monitoring.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	evaluateHandler *EvaluateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		evaluateHandler: NewEvaluateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
}

// evaluateRequest mirrors the request schema for POST /evaluate.
type evaluateRequest struct {
	Records      []map[string]any `json:"records"`
	SubjectField string           `json:"subject_field"`
	TimeField    string           `json:"time_field"`
	ValueField   string           `json:"value_field"`
	Threshold    *float64         `json:"threshold"`
	Method       string           `json:"method"`
}

func (e evaluateRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SubjectField) == "":
		return errors.New("missing subject_field")
	case strings.TrimSpace(e.TimeField) == "":
		return errors.New("missing time_field")
	case strings.TrimSpace(e.ValueField) == "":
		return errors.New("missing value_field")
	}
	return nil
}

// evaluateResponse mirrors the response schema for POST /evaluate.
type evaluateResponse struct {
	Method       string         `json:"method"`
	Count        int            `json:"count"`
	FlaggedCount int            `json:"flagged_count"`
	Rows         []types.Change `json:"rows"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
