package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// fakeAssigner hands out one canned exposure and remembers who asked.
type fakeAssigner struct {
	mu       sync.Mutex
	visitors []string
	exposure model.Exposure
}

func (f *fakeAssigner) ExposureFor(_ context.Context, visitorID, sessionID string) model.Exposure {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visitors = append(f.visitors, visitorID)

	e := f.exposure
	e.SessionID = sessionID
	return e
}

// testRegistry builds a registry whose sessions all share one fake
// deliverer and count teardowns.
func testRegistry(clock *fakeClock, fake *fakeDeliverer, teardowns *int, opts ...ServiceOption) *Service {
	factory := func(_ string) (*Tracker, func(ctx context.Context)) {
		t := New(
			WithClock(clock.Now),
			WithDeliverer(fake),
			WithScrollDebounce(0),
		)
		return t, func(context.Context) { *teardowns++ }
	}
	opts = append([]ServiceOption{
		WithTrackerFactory(factory),
		WithServiceClock(clock.Now),
	}, opts...)
	return NewService(opts...)
}

func TestServiceSessions(t *testing.T) {
	convey.Convey("Given a session registry", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		fake := &fakeDeliverer{}
		teardowns := 0
		svc := testRegistry(clock, fake, &teardowns)

		convey.Convey("When a session starts", func() {
			id, err := svc.StartSession(ctx, pageInfo())

			convey.Convey("Then it should be registered and delivering", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(id, convey.ShouldNotBeEmpty)
				convey.So(svc.SessionCount(), convey.ShouldEqual, 1)
				convey.So(fake.startCnt, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When events target an unknown session", func() {
			err := svc.Dispatch(ctx, "no-such-session", []model.BrowserEvent{{Type: "scroll"}})

			convey.Convey("Then the dispatch should fail", func() {
				convey.So(errors.Is(err, ErrSessionNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the registry stops with live sessions", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			_, err := svc.StartSession(ctx, pageInfo())
			convey.So(err, convey.ShouldBeNil)

			svc.Stop(ctx)

			convey.Convey("Then every session should be exit-flushed and torn down", func() {
				convey.So(svc.SessionCount(), convey.ShouldEqual, 0)
				convey.So(fake.exits, convey.ShouldHaveLength, 1)
				convey.So(teardowns, convey.ShouldEqual, 1)
			})
		})
	})
}

func TestServiceDispatch(t *testing.T) {
	convey.Convey("Given a registry with one live session", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		fake := &fakeDeliverer{}
		teardowns := 0
		svc := testRegistry(clock, fake, &teardowns)

		sessionID, err := svc.StartSession(ctx, pageInfo())
		convey.So(err, convey.ShouldBeNil)

		register := model.BrowserEvent{
			Type:      "register_section",
			SectionID: "hero",
			Bounds:    &model.Rect{Width: 1440, Height: 800},
		}

		convey.Convey("When a full visit arrives as one batch", func() {
			batch := []model.BrowserEvent{
				register,
				{Type: "intersection", SectionID: "hero", Ratio: 0.7, Intersecting: true},
				{Type: "pointer_move", SectionID: "hero", X: 100, Y: 100},
				{Type: "click", SectionID: "hero", X: 120, Y: 140, Target: "button"},
				{Type: "scroll", ScrollY: 250},
				{Type: "intersection", SectionID: "hero", Ratio: 0, Intersecting: false},
			}

			convey.So(svc.Dispatch(ctx, sessionID, batch), convey.ShouldBeNil)

			convey.Convey("Then the visit should produce one buffered payload", func() {
				convey.So(fake.enqueued, convey.ShouldHaveLength, 1)
				convey.So(fake.enqueued[0].ComponentID, convey.ShouldEqual, "hero")
				convey.So(fake.enqueued[0].ClickCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the form journey converts", func() {
			batch := []model.BrowserEvent{
				register,
				{Type: "intersection", SectionID: "hero", Ratio: 1, Intersecting: true},
				{Type: "field_focus", SectionID: "hero", Field: "email"},
				{Type: "field_input", SectionID: "hero", FieldType: "email", Value: "jane@example.com"},
				{Type: "field_blur", SectionID: "hero", Field: "email", ValueLength: 16},
				{Type: "converted", SectionID: "hero"},
			}

			convey.So(svc.Dispatch(ctx, sessionID, batch), convey.ShouldBeNil)

			convey.Convey("Then the conversion should ship immediately", func() {
				convey.So(fake.sent, convey.ShouldHaveLength, 1)
				convey.So(fake.sent[0].Status, convey.ShouldEqual, model.StatusConverted)
			})
		})

		convey.Convey("When a weather report arrives without a snapshot", func() {
			batch := []model.BrowserEvent{
				register,
				{Type: "intersection", SectionID: "hero", Ratio: 1, Intersecting: true},
				{Type: "weather", Message: "upstream timeout"},
				{Type: "intersection", SectionID: "hero", Ratio: 0, Intersecting: false},
			}

			convey.So(svc.Dispatch(ctx, sessionID, batch), convey.ShouldBeNil)

			convey.Convey("Then the failure should land in the event stream", func() {
				convey.So(fake.enqueued, convey.ShouldHaveLength, 1)

				var types []string
				for _, e := range fake.enqueued[0].EventStream {
					types = append(types, e.Type)
				}
				convey.So(types, convey.ShouldContain, "weather_failed")
			})
		})

		convey.Convey("When an event type the engine never learned arrives", func() {
			batch := []model.BrowserEvent{
				register,
				{Type: "intersection", SectionID: "hero", Ratio: 1, Intersecting: true},
				{Type: "gamepad_connected", Fields: map[string]any{"pad": "xbox"}},
				{Type: "intersection", SectionID: "hero", Ratio: 0, Intersecting: false},
			}

			convey.Convey("Then the batch should still succeed", func() {
				convey.So(svc.Dispatch(ctx, sessionID, batch), convey.ShouldBeNil)

				var types []string
				for _, e := range fake.enqueued[0].EventStream {
					types = append(types, e.Type)
				}
				convey.So(types, convey.ShouldContain, "gamepad_connected")
			})
		})

		convey.Convey("When the page hides", func() {
			convey.So(svc.Dispatch(ctx, sessionID, []model.BrowserEvent{register, {Type: "page_hidden"}}), convey.ShouldBeNil)

			convey.Convey("Then the session should be exit-flushed and removed", func() {
				convey.So(fake.exits, convey.ShouldHaveLength, 1)
				convey.So(svc.SessionCount(), convey.ShouldEqual, 0)
				convey.So(teardowns, convey.ShouldEqual, 1)
			})

			convey.Convey("And later batches should see the session as gone", func() {
				err := svc.Dispatch(ctx, sessionID, []model.BrowserEvent{{Type: "page_hidden"}})
				convey.So(errors.Is(err, ErrSessionNotFound), convey.ShouldBeTrue)
				convey.So(fake.exits, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When stragglers follow the hide inside one batch", func() {
			batch := []model.BrowserEvent{
				register,
				{Type: "intersection", SectionID: "hero", Ratio: 1, Intersecting: true},
				{Type: "page_hidden"},
				{Type: "intersection", SectionID: "hero", Ratio: 0, Intersecting: false},
				{Type: "click", SectionID: "hero", X: 10, Y: 10, Target: "button"},
			}

			convey.So(svc.Dispatch(ctx, sessionID, batch), convey.ShouldBeNil)

			convey.Convey("Then nothing should land in the buffer after the exit flush", func() {
				convey.So(fake.exits, convey.ShouldHaveLength, 1)
				convey.So(fake.enqueued, convey.ShouldBeEmpty)
				convey.So(svc.SessionCount(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestServiceAssign(t *testing.T) {
	convey.Convey("Given a registry with an experiment assigner", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		fake := &fakeDeliverer{}
		teardowns := 0
		assigner := &fakeAssigner{exposure: model.Exposure{
			CopyBucket:  "A",
			StyleBucket: "B",
			Cell:        "A_B",
		}}
		svc := testRegistry(clock, fake, &teardowns, WithAssigner(assigner))

		sessionID, err := svc.StartSession(ctx, pageInfo())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Dispatch(ctx, sessionID, []model.BrowserEvent{{
			Type: "register_section", SectionID: "hero", Bounds: &model.Rect{Width: 1440, Height: 800},
		}}), convey.ShouldBeNil)

		convey.Convey("When an exposure is assigned to a section", func() {
			exposure, err := svc.Assign(ctx, sessionID, "visitor-1", "hero")

			convey.Convey("Then it should come back stamped with the session", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(exposure.Cell, convey.ShouldEqual, "A_B")
				convey.So(exposure.SessionID, convey.ShouldEqual, sessionID)
				convey.So(assigner.visitors, convey.ShouldResemble, []string{"visitor-1"})
			})

			convey.Convey("And the section's payloads should carry it", func() {
				convey.So(svc.Dispatch(ctx, sessionID, []model.BrowserEvent{
					{Type: "intersection", SectionID: "hero", Ratio: 1, Intersecting: true},
					{Type: "intersection", SectionID: "hero", Ratio: 0, Intersecting: false},
				}), convey.ShouldBeNil)

				convey.So(fake.enqueued, convey.ShouldHaveLength, 1)
				convey.So(fake.enqueued[0].Exposure, convey.ShouldNotBeNil)
				convey.So(fake.enqueued[0].Exposure.Cell, convey.ShouldEqual, "A_B")
			})
		})

		convey.Convey("When the session is unknown", func() {
			_, err := svc.Assign(ctx, "no-such-session", "visitor-1", "hero")
			convey.So(errors.Is(err, ErrSessionNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When no assigner is configured", func() {
			bare := testRegistry(clock, fake, &teardowns)
			_, err := bare.Assign(ctx, sessionID, "visitor-1", "hero")
			convey.So(errors.Is(err, ErrNoAssigner), convey.ShouldBeTrue)
		})
	})
}

func TestServiceEviction(t *testing.T) {
	convey.Convey("Given a registry with a short session TTL", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		fake := &fakeDeliverer{}
		teardowns := 0
		svc := testRegistry(clock, fake, &teardowns, WithSessionTTL(time.Minute))

		staleID, err := svc.StartSession(ctx, pageInfo())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When a session goes silent past the TTL", func() {
			clock.Advance(2 * time.Minute)
			svc.evictStale(ctx)

			convey.Convey("Then it should be exit-flushed and removed", func() {
				convey.So(svc.SessionCount(), convey.ShouldEqual, 0)
				convey.So(fake.exits, convey.ShouldHaveLength, 1)
				convey.So(teardowns, convey.ShouldEqual, 1)

				err := svc.Dispatch(ctx, staleID, []model.BrowserEvent{{Type: "scroll"}})
				convey.So(errors.Is(err, ErrSessionNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When events keep a session warm", func() {
			clock.Advance(45 * time.Second)
			convey.So(svc.Dispatch(ctx, staleID, []model.BrowserEvent{{Type: "scroll"}}), convey.ShouldBeNil)

			clock.Advance(45 * time.Second)
			svc.evictStale(ctx)

			convey.Convey("Then it should survive the sweep", func() {
				convey.So(svc.SessionCount(), convey.ShouldEqual, 1)
				convey.So(teardowns, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the stats are read", func() {
			convey.So(svc.Dispatch(ctx, staleID, []model.BrowserEvent{{
				Type: "register_section", SectionID: "hero", Bounds: &model.Rect{Width: 10, Height: 10},
			}}), convey.ShouldBeNil)

			stats := svc.GetStats()

			convey.Convey("Then they should reflect the live sessions", func() {
				convey.So(stats["activeSessions"], convey.ShouldEqual, 1)
				convey.So(stats["trackedSections"], convey.ShouldEqual, 1)
				convey.So(stats["sessionTTL"], convey.ShouldEqual, "1m0s")
			})
		})
	})
}
