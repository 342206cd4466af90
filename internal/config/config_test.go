package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/driftmark/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ParallelMinGroups, convey.ShouldEqual, 64)
			convey.So(cfg.MaxEvalRows, convey.ShouldEqual, 1_000_000)
			convey.So(cfg.DefaultThreshold, convey.ShouldEqual, 0)
			convey.So(cfg.DefaultMethod, convey.ShouldEqual, "first_last")
		})
	})
}
