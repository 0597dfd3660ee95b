package simulate

import (
	"math/rand"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestJourney(t *testing.T) {
	convey.Convey("Given a scripted visitor journey", t, func() {
		rng := rand.New(rand.NewSource(42))

		convey.Convey("When the visitor does not convert", func() {
			events := journey(rng, false)

			convey.Convey("Then sections should register before anything else", func() {
				for i := 0; i < len(sectionIDs); i++ {
					convey.So(events[i].Type, convey.ShouldEqual, "register_section")
					convey.So(events[i].Bounds, convey.ShouldNotBeNil)
				}
			})

			convey.Convey("Then the journey should end with a page hide", func() {
				convey.So(events[len(events)-1].Type, convey.ShouldEqual, "page_hidden")
			})

			convey.Convey("Then no conversion should appear", func() {
				for _, e := range events {
					convey.So(e.Type, convey.ShouldNotEqual, "converted")
				}
			})
		})

		convey.Convey("When the visitor converts", func() {
			events := journey(rng, true)

			var types []string
			for _, e := range events {
				types = append(types, e.Type)
			}

			convey.Convey("Then the quote form journey should carry the conversion", func() {
				convey.So(types, convey.ShouldContain, "field_focus")
				convey.So(types, convey.ShouldContain, "field_input")
				convey.So(types, convey.ShouldContain, "converted")
			})
		})

		convey.Convey("When page info is generated", func() {
			info := randomPageInfo(rng)

			convey.Convey("Then it should look like a real page load", func() {
				convey.So(info.URL, convey.ShouldStartWith, "https://")
				convey.So(info.UserAgent, convey.ShouldNotBeEmpty)
				convey.So(info.ViewportWidth, convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}
