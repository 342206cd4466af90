package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/driftmark/internal/app"
	"github.com/okian/driftmark/internal/domain/evaluate"
	"github.com/okian/driftmark/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// panel builds a small two-subject request.
func panel(method evaluate.Method, threshold float64) evaluate.Request {
	return evaluate.Request{
		Rows: []evaluate.Row{
			{"subject": "a", "time": 1, "value": 10.0},
			{"subject": "a", "time": 2, "value": 15.0},
			{"subject": "b", "time": 1, "value": 5.0},
			{"subject": "b", "time": 2, "value": 6.0},
		},
		SubjectField: "subject",
		TimeField:    "time",
		ValueField:   "value",
		Threshold:    threshold,
		Method:       method,
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)

			threshold, method := svc.Defaults()
			So(threshold, ShouldEqual, 0)
			So(method, ShouldEqual, evaluate.FirstLast)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithParallelMinGroups(16),
			service.WithMaxEvalRows(100),
			service.WithDefaultThreshold(2.5),
			service.WithDefaultMethod("mean_change"),
		)

		Convey("Then the defaults should reflect the options", func() {
			threshold, method := svc.Defaults()
			So(threshold, ShouldEqual, 2.5)
			So(method, ShouldEqual, evaluate.MeanChange)
		})
	})

	Convey("Given an invalid default method option", t, func() {
		svc := service.New(service.WithDefaultMethod("median_change"))

		Convey("Then the built-in default stands", func() {
			_, method := svc.Defaults()
			So(method, ShouldEqual, evaluate.FirstLast)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When evaluating a valid request", func() {
			rows, err := svc.Evaluate(ctx, panel(evaluate.FirstLast, 3))

			Convey("Then it should return the change rows", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Subject, ShouldEqual, "a")
				So(rows[0].Flagged, ShouldBeTrue)
				So(rows[1].Subject, ShouldEqual, "b")
				So(rows[1].Flagged, ShouldBeFalse)
			})

			Convey("And the running totals should advance", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["evaluations"], ShouldEqual, int64(1))
				So(stats["changeRows"], ShouldEqual, int64(2))
				So(stats["flaggedRows"], ShouldEqual, int64(1))
			})
		})

		Convey("When the request omits the method", func() {
			req := panel("", 3)
			rows, err := svc.Evaluate(ctx, req)

			Convey("Then the configured default applies", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].FirstValue, ShouldNotBeNil) // first_last shape
			})
		})

		Convey("When the evaluator reports an error", func() {
			req := panel("median_change", 3)
			_, err := svc.Evaluate(ctx, req)

			Convey("Then it is passed through unchanged", func() {
				So(err, ShouldWrap, evaluate.ErrUnknownMethod)
			})
		})
	})

	Convey("Given a service with a tight row cap", t, func() {
		svc := service.New(service.WithMaxEvalRows(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When evaluating more rows than the cap allows", func() {
			_, err := svc.Evaluate(ctx, panel(evaluate.FirstLast, 3))

			Convey("Then it should refuse with the row cap error", func() {
				So(err, ShouldWrap, service.ErrTooManyRows)
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("When evaluating", func() {
			_, err := svc.Evaluate(context.Background(), panel(evaluate.FirstLast, 1))

			Convey("Then it should report not started", func() {
				So(err, ShouldWrap, service.ErrNotStarted)
			})
		})
	})
}
