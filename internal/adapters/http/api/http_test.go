package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/driftmark/internal/adapters/http/api"
	"github.com/okian/driftmark/internal/domain/evaluate"
	"github.com/okian/driftmark/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	evaluator        evaluate.Evaluator
	defaultThreshold float64
	defaultMethod    evaluate.Method
	evaluateErr      error
}

func (m *mockDependencies) Evaluate(ctx context.Context, req evaluate.Request) ([]types.Change, error) {
	if m.evaluateErr != nil {
		return nil, m.evaluateErr
	}
	return m.evaluator.Evaluate(ctx, req)
}

func (m *mockDependencies) Defaults() (float64, evaluate.Method) {
	method := m.defaultMethod
	if method == "" {
		method = evaluate.FirstLast
	}
	return m.defaultThreshold, method
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newTestMux(deps *mockDependencies) *http.ServeMux {
	if deps.evaluator == nil {
		deps.evaluator = evaluate.New()
	}
	statsProvider := &mockStatsProvider{stats: map[string]interface{}{"evaluations": int64(3)}}
	server := api.NewServer(deps, statsProvider)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func postEvaluate(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(&mockDependencies{})

		Convey("When hitting the health endpoint", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should respond OK", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"ok"`)
			})
		})

		Convey("When hitting the stats endpoint", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the provider's stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"evaluations":3`)
			})
		})

		Convey("When sending GET to the evaluate endpoint", func() {
			req := httptest.NewRequest("GET", "/evaluate", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a request carries no request id", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the middleware assigns one", func() {
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When a request carries a request id", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			req.Header.Set("X-Request-ID", "req-42")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the middleware echoes it back", func() {
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-42")
			})
		})
	})
}

func TestEvaluateHandler_Success(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(&mockDependencies{})

		body := `{
			"records": [
				{"person": 1, "t": 1, "score": 10},
				{"person": 1, "t": 2, "score": 15},
				{"person": 2, "t": 1, "score": 5},
				{"person": 2, "t": 2, "score": 6}
			],
			"subject_field": "person",
			"time_field": "t",
			"value_field": "score",
			"threshold": 3,
			"method": "first_last"
		}`

		Convey("When posting a valid evaluation request", func() {
			w := postEvaluate(mux, body)

			Convey("Then it should return the change rows", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Method       string `json:"method"`
					Count        int    `json:"count"`
					FlaggedCount int    `json:"flagged_count"`
					Rows         []struct {
						Subject string  `json:"subject"`
						Change  float64 `json:"change"`
						Flagged bool    `json:"flagged"`
					} `json:"rows"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Method, ShouldEqual, "first_last")
				So(resp.Count, ShouldEqual, 2)
				So(resp.FlaggedCount, ShouldEqual, 1)
				So(resp.Rows[0].Subject, ShouldEqual, "1")
				So(resp.Rows[0].Change, ShouldEqual, 5.0)
				So(resp.Rows[0].Flagged, ShouldBeTrue)
				So(resp.Rows[1].Flagged, ShouldBeFalse)
			})
		})

		Convey("When posting an empty record set", func() {
			w := postEvaluate(mux, `{
				"records": [],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"threshold": 1,
				"method": "first_last"
			}`)

			Convey("Then it should return an empty result, not an error", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"count":0`)
				So(w.Body.String(), ShouldContainSubstring, `"rows":[]`)
			})
		})
	})
}

func TestEvaluateHandler_Defaults(t *testing.T) {
	Convey("Given a server with configured defaults", t, func() {
		mux := newTestMux(&mockDependencies{
			defaultThreshold: 4,
			defaultMethod:    evaluate.MeanChange,
		})

		body := `{
			"records": [
				{"person": "a", "t": 1, "score": 10},
				{"person": "a", "t": 2, "score": 20}
			],
			"subject_field": "person",
			"time_field": "t",
			"value_field": "score"
		}`

		Convey("When a request omits method and threshold", func() {
			w := postEvaluate(mux, body)

			Convey("Then the configured defaults apply", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Method string `json:"method"`
					Rows   []struct {
						Change  float64 `json:"change"`
						Flagged bool    `json:"flagged"`
					} `json:"rows"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Method, ShouldEqual, "mean_change")
				So(resp.Rows[0].Change, ShouldEqual, 10.0)
				So(resp.Rows[0].Flagged, ShouldBeTrue) // |10| >= default 4
			})
		})

		Convey("When a request sets threshold to zero explicitly", func() {
			w := postEvaluate(mux, `{
				"records": [
					{"person": "a", "t": 1, "score": 10},
					{"person": "a", "t": 2, "score": 10}
				],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"threshold": 0,
				"method": "first_last"
			}`)

			Convey("Then zero is honored, not replaced by the default", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"flagged_count":1`) // |0| >= 0
			})
		})
	})
}

func TestEvaluateHandler_Errors(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(&mockDependencies{})

		Convey("When the body is not valid JSON", func() {
			w := postEvaluate(mux, `{not json`)

			Convey("Then it should return 400 bad_request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"bad_request"`)
			})
		})

		Convey("When a field name is missing", func() {
			w := postEvaluate(mux, `{
				"records": [],
				"subject_field": "person",
				"value_field": "score"
			}`)

			Convey("Then it should return 400 bad_request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "time_field")
			})
		})

		Convey("When the method is unknown", func() {
			w := postEvaluate(mux, `{
				"records": [],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"method": "median_change"
			}`)

			Convey("Then it should return 400 invalid_method", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"invalid_method"`)
			})
		})

		Convey("When a record is missing a configured field", func() {
			w := postEvaluate(mux, `{
				"records": [{"person": "a", "t": 1}],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"method": "first_last"
			}`)

			Convey("Then it should return 400 schema_error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"schema_error"`)
			})
		})

		Convey("When a record value is not numeric", func() {
			w := postEvaluate(mux, `{
				"records": [{"person": "a", "t": 1, "score": "tall"}],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"method": "first_last"
			}`)

			Convey("Then it should return 400 type_coercion", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"type_coercion"`)
			})
		})

		Convey("When the service rejects the row count", func() {
			capped := &mockDependencies{
				evaluateErr: fmt.Errorf("%w: 10 rows, cap 5", api.ErrRowCap),
			}
			w := postEvaluate(newTestMux(capped), `{
				"records": [{"person": "a", "t": 1, "score": 1}],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"method": "first_last"
			}`)

			Convey("Then it should return 413 row_cap", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(w.Body.String(), ShouldContainSubstring, `"row_cap"`)
			})
		})

		Convey("When the evaluator fails internally", func() {
			broken := &mockDependencies{
				evaluateErr: fmt.Errorf("storage offline"),
			}
			w := postEvaluate(newTestMux(broken), `{
				"records": [{"person": "a", "t": 1, "score": 1}],
				"subject_field": "person",
				"time_field": "t",
				"value_field": "score",
				"method": "first_last"
			}`)

			Convey("Then it should return 500 internal", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, `"internal"`)
			})
		})
	})
}
