package config_test

import (
	"testing"

	"github.com/okian/pagepulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WebhookURL, convey.ShouldEqual, "http://localhost:9090/collect")
			convey.So(cfg.FlushIntervalMS, convey.ShouldEqual, 30_000)
			convey.So(cfg.PayloadBufferCap, convey.ShouldEqual, 50)
			convey.So(cfg.RetryKeep, convey.ShouldEqual, 10)
			convey.So(cfg.EventRingCapacity, convey.ShouldEqual, 60)
			convey.So(cfg.RageClickThreshold, convey.ShouldEqual, 3)
			convey.So(cfg.RageClickWindowMS, convey.ShouldEqual, 1_000)
			convey.So(cfg.FlybyVelocity, convey.ShouldEqual, 1_800)
			convey.So(cfg.IdleThresholdMS, convey.ShouldEqual, 1_200)
		})
	})
}
