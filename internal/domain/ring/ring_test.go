package ring_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/pagepulse/internal/domain/ring"
	"github.com/smartystreets/goconvey/convey"
)

// stepClock returns a clock that advances a fixed amount per call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestBuffer(t *testing.T) {
	convey.Convey("Given a ring buffer", t, func() {
		start := time.UnixMilli(1_000_000)

		convey.Convey("When appending below capacity", func() {
			b := ring.New(ring.WithCapacity(5))
			b.Append("click", map[string]any{"sectionId": "hero"})
			b.Append("scroll", nil)

			convey.Convey("Then all events should be retained in order", func() {
				convey.So(b.Len(), convey.ShouldEqual, 2)

				events := b.Snapshot()
				convey.So(events[0].Type, convey.ShouldEqual, "click")
				convey.So(events[1].Type, convey.ShouldEqual, "scroll")
			})
		})

		convey.Convey("When appending past capacity", func() {
			b := ring.New(ring.WithCapacity(3))
			for i := 0; i < 5; i++ {
				b.Append(fmt.Sprintf("event-%d", i), nil)
			}

			convey.Convey("Then the oldest events should be dropped", func() {
				convey.So(b.Len(), convey.ShouldEqual, 3)

				events := b.Snapshot()
				convey.So(events[0].Type, convey.ShouldEqual, "event-2")
				convey.So(events[1].Type, convey.ShouldEqual, "event-3")
				convey.So(events[2].Type, convey.ShouldEqual, "event-4")
			})
		})

		convey.Convey("When using the default capacity", func() {
			b := ring.New()
			for i := 0; i < 100; i++ {
				b.Append("scroll", nil)
			}

			convey.Convey("Then it should cap at sixty events", func() {
				convey.So(b.Len(), convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When stamping with an injected clock", func() {
			b := ring.New(ring.WithClock(stepClock(start, time.Second)))
			first := b.Append("click", nil)
			second := b.Append("click", nil)

			convey.Convey("Then timestamps should come from the clock", func() {
				convey.So(first.Timestamp, convey.ShouldEqual, start.UnixMilli())
				convey.So(second.Timestamp, convey.ShouldEqual, start.Add(time.Second).UnixMilli())
			})
		})

		convey.Convey("When asking for the last n events", func() {
			b := ring.New(ring.WithCapacity(10))
			for i := 0; i < 6; i++ {
				b.Append(fmt.Sprintf("event-%d", i), nil)
			}

			convey.Convey("Then the tail should come back in order", func() {
				tail := b.Last(3)
				convey.So(tail, convey.ShouldHaveLength, 3)
				convey.So(tail[0].Type, convey.ShouldEqual, "event-3")
				convey.So(tail[2].Type, convey.ShouldEqual, "event-5")
			})

			convey.Convey("And asking for more than buffered should return everything", func() {
				convey.So(b.Last(100), convey.ShouldHaveLength, 6)
			})
		})

		convey.Convey("When filtering by type", func() {
			b := ring.New(ring.WithCapacity(10))
			b.Append("error", map[string]any{"message": "one"})
			b.Append("scroll", nil)
			b.Append("error", map[string]any{"message": "two"})
			b.Append("error", map[string]any{"message": "three"})

			convey.Convey("Then the most recent matches should come back oldest first", func() {
				errs := b.LastOfType("error", 2)
				convey.So(errs, convey.ShouldHaveLength, 2)
				convey.So(errs[0].Fields["message"], convey.ShouldEqual, "two")
				convey.So(errs[1].Fields["message"], convey.ShouldEqual, "three")
			})
		})

		convey.Convey("When scanning for the first event after an instant", func() {
			b := ring.New(ring.WithClock(stepClock(start, time.Second)))
			b.Append("scroll", nil) // t+0s
			b.Append("click", nil)  // t+1s
			b.Append("scroll", nil) // t+2s

			convey.Convey("Then the scan should skip other types and earlier events", func() {
				e, ok := b.FirstOfTypeAfter("scroll", start.UnixMilli())
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(e.Timestamp, convey.ShouldEqual, start.Add(2*time.Second).UnixMilli())
			})

			convey.Convey("And a scan past the newest event should miss", func() {
				_, ok := b.FirstOfTypeAfter("scroll", start.Add(time.Minute).UnixMilli())
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}
